package assistant

import (
	"regexp"
	"strings"

	"github.com/ashureev/jobpt/internal/domain"
)

// QuestionRequest asks the advisor for tailored conversation starters.
const QuestionRequest = "위 프로필에 맞는 채용공고 관련 질문 5개를 간단하고 명확하게 생성해주세요. " +
	"각 질문은 한 줄로 작성하고, 번호나 특수문자 없이 순수한 질문 문장만 제공해주세요."

// Markers are stripped in this order, each at most once.
var enumerationMarkers = []*regexp.Regexp{
	regexp.MustCompile(`^\d+\.\s*`),
	regexp.MustCompile(`^-\s*`),
	regexp.MustCompile(`^•\s*`),
	regexp.MustCompile(`^[*]\s*`),
}

var interrogativeKeywords = []string{"?", "어떤", "무엇", "어디"}

// ParseQuestions extracts up to five questions from free-form model text.
func ParseQuestions(text string) []string {
	questions := make([]string, 0, domain.MaxCustomQuestions)
	for _, line := range strings.Split(text, "\n") {
		cleaned := strings.TrimSpace(line)
		if cleaned == "" {
			continue
		}
		for _, re := range enumerationMarkers {
			cleaned = re.ReplaceAllString(cleaned, "")
		}
		cleaned = strings.TrimSpace(cleaned)
		if cleaned == "" || !looksLikeQuestion(cleaned) {
			continue
		}
		questions = append(questions, cleaned)
		if len(questions) == domain.MaxCustomQuestions {
			break
		}
	}
	return questions
}

func looksLikeQuestion(s string) bool {
	for _, kw := range interrogativeKeywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

var fallbackQuestions = map[domain.Position][]string{
	domain.PositionFrontendDeveloper: {
		"프론트엔드 개발자 신입 채용공고 추천해주세요",
		"React를 사용하는 회사들의 최신 채용 동향은 어떤가요?",
		"프론트엔드 개발자의 평균 연봉은 얼마나 되나요?",
		"스타트업과 대기업 중 프론트엔드 개발자에게 더 유리한 곳은?",
		"원격근무 가능한 프론트엔드 개발자 채용공고가 있나요?",
	},
	domain.PositionBackendDeveloper: {
		"백엔드 개발자 채용공고에서 가장 많이 요구하는 기술은?",
		"Python과 Java 중 어떤 언어가 더 수요가 많나요?",
		"백엔드 개발자 연봉 협상 팁을 알려주세요",
		"MSA 경험이 있는 백엔드 개발자 채용공고 찾아주세요",
		"클라우드 경험을 요구하는 백엔드 채용공고가 많나요?",
	},
	domain.PositionDataAnalyst: {
		"데이터 분석가 신입 채용에서 요구하는 필수 스킬은?",
		"SQL과 Python 외에 배워야 할 기술이 있나요?",
		"데이터 분석가 포트폴리오는 어떻게 준비해야 하나요?",
		"금융권과 IT기업 중 데이터 분석가에게 더 좋은 곳은?",
		"빅데이터 관련 자격증이 취업에 도움이 될까요?",
	},
}

var genericQuestions = []string{
	"IT 분야 최신 채용 트렌드를 알려주세요",
	"내 경력에 맞는 채용공고를 추천해주세요",
	"이직할 때 가장 중요하게 봐야 할 요소는?",
	"면접에서 자주 나오는 질문들을 알려주세요",
	"연봉 협상은 어떻게 하는 것이 좋을까요?",
}

// FallbackQuestions returns the static question set for a position. Positions
// without a dedicated set get the generic one.
func FallbackQuestions(p domain.Position) []string {
	qs, ok := fallbackQuestions[p]
	if !ok {
		qs = genericQuestions
	}
	return append([]string(nil), qs...)
}
