package assistant

import "github.com/ashureev/jobpt/internal/advisor"

// Replies persisted in place of an advisor answer.
const (
	OfflineNotice   = "현재 AI 상담 서버에 연결할 수 없어 오프라인 모드로 동작 중입니다. 연결이 복구되면 다시 질문해주세요."
	NoReplyMessage  = "응답을 받지 못했습니다."
	networkMessage  = "네트워크 연결을 확인해주세요."
	timeoutMessage  = "응답 시간이 초과되었습니다. 잠시 후 다시 시도해주세요."
	serverMessage   = "서버에 일시적인 문제가 발생했습니다."
	notFoundMessage = "API 엔드포인트를 찾을 수 없습니다."
	unknownMessage  = "API 호출 중 오류가 발생했습니다."
)

// FallbackReply returns the deterministic reply for a failure kind.
func FallbackReply(kind advisor.FailureKind) string {
	switch kind {
	case advisor.FailureNetwork:
		return networkMessage
	case advisor.FailureTimeout:
		return timeoutMessage
	case advisor.FailureServer:
		return serverMessage
	case advisor.FailureNotFound:
		return notFoundMessage
	default:
		return unknownMessage
	}
}
