package host

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Frame builders. Shapes mirror the host's own LLM response envelopes; the
// UI silently drops anything that deviates, so payload fields (including
// the telemetry scaffolding) are reproduced verbatim.

type header struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Namespace        string `json:"namespace"`
	NamespaceVersion string `json:"namespaceVersion"`
	Version          string `json:"version"`
}

type directive struct {
	Header  header      `json:"header"`
	Payload interface{} `json:"payload"`
}

type interimExtend struct {
	IsLlmResult   bool   `json:"isLlmResult"`
	UserInputType string `json:"userInputType"`
	IsLlmFirst    bool   `json:"isLlmFirstResp"`
}

type terminalExtend struct {
	IsLlmResult bool   `json:"isLlmResult"`
	UserInput   string `json:"userInputType"`
	IsLlmFinal  bool   `json:"isLlmFinalResponse"`
}

type frameEnvelope struct {
	ConversationID   string      `json:"conversationId"`
	Directives       []directive `json:"directives"`
	Extend           interface{} `json:"extend"`
	OriginalRecordID string      `json:"originalRecordId"`
	RecordID         string      `json:"recordId"`
	RoomID           string      `json:"roomId"`
	SequenceID       int         `json:"sequenceId"`
	SessionID        string      `json:"sessionId"`
	UniqueID         string      `json:"uniqueId"`
	Version          string      `json:"version"`
}

// newHeader builds a directive header with a random 32-hex id, the format
// the host uses for its own directives.
func newHeader(name, namespace, namespaceVersion, version string) header {
	return header{
		ID:               strings.ReplaceAll(uuid.NewString(), "-", ""),
		Name:             name,
		Namespace:        namespace,
		NamespaceVersion: namespaceVersion,
		Version:          version,
	}
}

func streamTextCardDirective(content, roomID string) directive {
	return directive{
		Header: newHeader(DirStreamTextCard, "MyAI", "2.0.27", "2.8"),
		Payload: map[string]interface{}{
			"needNewRoom": false,
			"isHtml":      false,
			"isFinal":     false,
			"type":        0,
			"roomId":      roomID,
			"content":     content,
			"charPerSec":  50,
		},
	}
}

func terminalTextCardDirective(roomID string) directive {
	return directive{
		Header: newHeader(DirStreamTextCard, "MyAI", "2.0.27", "2.8"),
		Payload: map[string]interface{}{
			"needNewRoom": false,
			"isHtml":      false,
			"statement":   "由 AI 生成，内容仅供参考",
			"isFinal":     true,
			"type":        0,
			"roomId":      roomID,
			"content":     "",
		},
	}
}

func expectSpeechDirective() directive {
	return directive{
		Header: newHeader(DirExpectSpeech, NamespaceSpeechRecognizer, "2.0.10", "2.2"),
		Payload: map[string]interface{}{
			"micAct": "off",
		},
	}
}

func clientTrackingDirective() directive {
	return directive{
		Header: newHeader(DirClientTracking, "Tracking", "2.0.8", "2.1"),
		Payload: map[string]interface{}{
			"skillId": -88888888,
			"code":    "normal_bot-rhythm-controller_llm-finished",
			"expIds":  "21853,26537,38244,15544,34851,49705,49050,42681,51474,38573,45941,46888,60189",
			"extendMap": map[string]interface{}{
				"skillName": "llm_general_skill_name",
				"exp_info": map[string]interface{}{
					"个性化问答": "29193,35866,38692,42406,56568,58160",
					"center": "21853,26537,38244,15544,34851,49705,49050,42681,51474,38573,45941,46888,60189",
				},
			},
			"message":      "正常大模型返回最后一帧",
			"dmName":       "bot-rhythm-controller",
			"resourceType": "normal_finished",
		},
	}
}

func longPressEntry(text, kind string) map[string]string {
	return map[string]string{"buttonText": text, "type": kind}
}

func dislikeInfo() map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{
				"choiceTitle": "体验问题",
				"options":     []string{"答非所问", "信息过时", "答案有误", "没有帮助", "过于模板化", "没结合上文", "语音识别错", "播报有问题"},
			},
			{
				"choiceTitle": "安全问题",
				"options":     []string{"政治影响", "违反公序良俗", "违法", "侮辱", "偏见歧视"},
			},
		},
	}
}

func fullLongPressList() []map[string]string {
	return []map[string]string{
		longPressEntry("复制全文", "copy_all"),
		longPressEntry("选择文本", "select"),
		longPressEntry("播报全文", "speak"),
		longPressEntry("导出到便签", "export_to_notes"),
		longPressEntry("点赞", "like"),
		longPressEntry("点踩", "dislike"),
	}
}

func interimFeedbackDirective() directive {
	return directive{
		Header: newHeader(DirBreenoFeedback, "Tracking", "2.0.8", "2.4"),
		Payload: map[string]interface{}{
			"longPressInfoList": fullLongPressList(),
			"dislikeInfo":       dislikeInfo(),
		},
	}
}

func terminalFeedbackDirective(query, recordID string) directive {
	echo, _ := json.Marshal(map[string]string{"recordId": recordID, "query": query})

	return directive{
		Header: newHeader(DirBreenoFeedback, "Tracking", "2.0.8", "2.4"),
		Payload: map[string]interface{}{
			"longPressInfoList": []map[string]string{
				longPressEntry("复制", "copy"),
				longPressEntry("播报全文", "speak"),
				longPressEntry("点踩", "dislike"),
				longPressEntry("点赞", "like"),
			},
			"newLongPressInfoList": fullLongPressList(),
			"dislikeInfo":          dislikeInfo(),
			"footerInfo": map[string]interface{}{
				"copyFlag": true,
				"copyInfo": map[string]interface{}{
					"autoCopy": false,
				},
				"upvoteFlag": true,
				"shareInfos": []map[string]string{
					longPressEntry("导出到便签", "export_to_notes"),
				},
				"regenerate": map[string]interface{}{
					"echoInfo": string(echo),
					"showText": "换一个回复",
				},
			},
		},
	}
}

func ackPublishDirective() directive {
	return directive{
		Header: newHeader(DirAckPublish, "Command", "2.0.8", "2.0"),
		Payload: map[string]interface{}{
			"type": []string{"REC_ACK"},
		},
	}
}

// InterimFrame builds one non-final display frame carrying content.
func InterimFrame(content string, meta FrameMeta) []byte {
	env := frameEnvelope{
		ConversationID: "",
		Directives: []directive{
			streamTextCardDirective(content, meta.IDs.RoomID),
			interimFeedbackDirective(),
			ackPublishDirective(),
		},
		Extend: interimExtend{
			IsLlmResult:   true,
			UserInputType: "1",
			IsLlmFirst:    meta.First,
		},
		OriginalRecordID: meta.IDs.OriginalRecordID,
		RecordID:         meta.IDs.RecordID,
		RoomID:           meta.IDs.RoomID,
		SequenceID:       meta.Sequence,
		SessionID:        meta.IDs.SessionID,
		UniqueID:         strconv.FormatInt(meta.Timestamp.UnixMilli(), 10),
		Version:          "3.0",
	}

	out, _ := json.Marshal(env)
	return out
}

// TerminalFrame builds the closing frame: final empty text card plus the
// companion directives the UI requires to accept the turn as finished,
// and the regenerate echo of the original query.
func TerminalFrame(query string, meta FrameMeta) []byte {
	env := frameEnvelope{
		ConversationID: "",
		Directives: []directive{
			terminalTextCardDirective(meta.IDs.RoomID),
			expectSpeechDirective(),
			clientTrackingDirective(),
			terminalFeedbackDirective(query, meta.IDs.RecordID),
			ackPublishDirective(),
		},
		Extend: terminalExtend{
			IsLlmResult: true,
			UserInput:   "1",
			IsLlmFinal:  true,
		},
		OriginalRecordID: meta.IDs.OriginalRecordID,
		RecordID:         meta.IDs.RecordID,
		RoomID:           meta.IDs.RoomID,
		SequenceID:       meta.Sequence,
		SessionID:        meta.IDs.SessionID,
		UniqueID:         strconv.FormatInt(meta.Timestamp.UnixMilli(), 10),
		Version:          "3.0",
	}

	out, _ := json.Marshal(env)
	return out
}
