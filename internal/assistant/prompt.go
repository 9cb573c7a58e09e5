package assistant

import (
	"fmt"
	"strings"

	"github.com/ashureev/jobpt/internal/domain"
)

const unsetLabel = "미설정"

var (
	statusLabels = map[string]string{
		"job_seeking":  "구직중",
		"job_changing": "이직준비중",
		"exploring":    "정보수집 단계",
	}
	experienceLabels = map[string]string{
		"entry":    "신입",
		"1-3years": "1-3년차",
		"4-7years": "4-7년차",
		"8plus":    "8년차 이상",
	}
	positionLabels = map[domain.Position]string{
		domain.PositionFrontendDeveloper:  "프론트엔드 개발자",
		domain.PositionBackendDeveloper:   "백엔드 개발자",
		domain.PositionFullstackDeveloper: "풀스택 개발자",
		domain.PositionMobileDeveloper:    "모바일 개발자",
		domain.PositionDataAnalyst:        "데이터 분석가",
		domain.PositionDevOpsEngineer:     "DevOps 엔지니어",
		domain.PositionProductManager:     "프로덕트 매니저",
		domain.PositionDesigner:           "UI/UX 디자이너",
		domain.PositionMarketer:           "마케터",
		domain.PositionOther:              "기타",
	}
	companySizeLabels = map[string]string{
		"startup": "스타트업",
		"small":   "중소기업",
		"medium":  "중견기업",
		"large":   "대기업",
		"any":     "상관없음",
	}
	workTypeLabels = map[string]string{
		"onsite": "출근근무",
		"remote": "재택근무",
		"hybrid": "하이브리드",
		"any":    "상관없음",
	}
	priorityLabels = map[string]string{
		"salary":            "연봉",
		"growth":            "성장기회",
		"work_life_balance": "워라밸",
		"benefits":          "복리후생",
		"culture":           "회사문화",
		"stability":         "안정성",
	}
	timelineLabels = map[string]string{
		"immediate": "즉시",
		"3months":   "3개월 내",
		"6months":   "6개월 내",
		"1year":     "1년 내",
	}
	interestLabels = map[string]string{
		"market_trends":   "시장 동향",
		"salary_info":     "연봉 정보",
		"required_skills": "필요 스킬",
		"interview_prep":  "면접 준비",
	}
)

// label translates a profile key, passing unknown keys through.
func label(table map[string]string, key string) string {
	if key == "" {
		return unsetLabel
	}
	if l, ok := table[key]; ok {
		return l
	}
	return key
}

func positionLabel(key string) string {
	if key == "" {
		return unsetLabel
	}
	p := domain.ParsePosition(key)
	if p == domain.PositionOther && key != domain.PositionOther.String() {
		return key
	}
	return positionLabels[p]
}

func joinOrUnset(items []string, translate func(string) string) string {
	if len(items) == 0 {
		return unsetLabel
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, translate(it))
	}
	return strings.Join(out, ", ")
}

// BuildSystemPrompt renders the consultant preamble sent ahead of the history.
// It is rebuilt for every request and never stored.
func BuildSystemPrompt(p domain.ProfileData) string {
	var b strings.Builder
	b.WriteString("당신은 전문 채용 컨설턴트입니다. 사용자는 다음과 같은 프로필을 가지고 있습니다:\n\n")
	fmt.Fprintf(&b, "- 현재 상태: %s\n", label(statusLabels, p.Status))
	fmt.Fprintf(&b, "- 경력 수준: %s\n", label(experienceLabels, p.Experience))
	fmt.Fprintf(&b, "- 희망 직무: %s\n", positionLabel(p.Position))
	fmt.Fprintf(&b, "- 관심 기술: %s\n", joinOrUnset(p.TechStack, func(s string) string { return s }))
	fmt.Fprintf(&b, "- 선호 회사규모: %s\n", label(companySizeLabels, p.CompanySize))
	fmt.Fprintf(&b, "- 근무형태: %s\n", label(workTypeLabels, p.WorkType))
	fmt.Fprintf(&b, "- 중요 요소: %s\n", joinOrUnset(p.Priorities, func(s string) string { return label(priorityLabels, s) }))
	fmt.Fprintf(&b, "- 목표시기: %s\n", label(timelineLabels, p.Timeline))
	fmt.Fprintf(&b, "- 관심사: %s\n\n", label(interestLabels, p.MainInterest))
	b.WriteString("이 프로필을 바탕으로 사용자에게 맞춤형 채용공고 정보와 조언을 제공해주세요.\n")
	b.WriteString("사용자의 관심사와 목표에 맞는 구체적이고 실용적인 정보를 우선적으로 제공하고,\n")
	b.WriteString("현재 상태와 경력 수준에 적합한 수준의 조언을 해주세요.")
	return b.String()
}
