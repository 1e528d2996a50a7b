package domain

import "fmt"

// EarnKind is the closed set of earning activities. Each kind carries a fixed
// point value, the journal type and the feed kind it produces.
type EarnKind string

const (
	EarnSignup          EarnKind = "signup"
	EarnProfileComplete EarnKind = "profile-complete"
	EarnResumeCreated   EarnKind = "resume-created"
	EarnSocialFollow    EarnKind = "social-follow"
	EarnReferral        EarnKind = "referral"
	EarnDailyLogin      EarnKind = "daily-login"
	EarnLevelUp         EarnKind = "level-up"
)

type earning struct {
	points      int64
	tx          TransactionType
	activity    ActivityKind
	description string
	// client marks kinds a user may request directly; the rest are
	// issued by onboarding, referrals or operators.
	client bool
}

var earnings = map[EarnKind]earning{
	EarnSignup:          {25, TxEarnSignup, ActivitySignup, "Welcome bonus for signing up", false},
	EarnProfileComplete: {50, TxEarnProfileComplete, ActivityProfileComplete, "Completed your profile", true},
	EarnResumeCreated:   {25, TxEarnResumeCreated, ActivityResumeCreated, "Created a resume", true},
	EarnSocialFollow:    {10, TxEarnSocialFollow, ActivitySocialFollow, "Followed us on %s", true},
	EarnReferral:        {200, TxEarnReferral, ActivityReferral, "Referral bonus", false},
	EarnDailyLogin:      {10, TxEarnDailyLogin, ActivityDailyLogin, "Daily login bonus (%d day streak)", true},
	EarnLevelUp:         {100, TxEarnLevelUp, ActivityLevelUp, "Level-up bonus", false},
}

// ParseEarnKind rejects anything outside the closed set.
func ParseEarnKind(s string) (EarnKind, error) {
	k := EarnKind(s)
	if _, ok := earnings[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownActivity, s)
	}
	return k, nil
}

func (k EarnKind) Valid() bool {
	_, ok := earnings[k]
	return ok
}

func (k EarnKind) Points() int64                    { return earnings[k].points }
func (k EarnKind) TransactionType() TransactionType { return earnings[k].tx }
func (k EarnKind) ActivityKind() ActivityKind       { return earnings[k].activity }
func (k EarnKind) ClientCreditable() bool           { return earnings[k].client }

// Describe renders the description template. Social follows take the
// platform, daily logins take the streak length.
func (k EarnKind) Describe(arg any) string {
	e := earnings[k]
	switch k {
	case EarnSocialFollow, EarnDailyLogin:
		return fmt.Sprintf(e.description, arg)
	}
	return e.description
}

// SpendKind is the closed set of spending activities.
type SpendKind string

const (
	SpendCVDownload     SpendKind = "cv-download"
	SpendAISuggestion   SpendKind = "ai-suggestion"
	SpendTemplateUnlock SpendKind = "template-unlock"
)

type spending struct {
	tx          TransactionType
	activity    ActivityKind
	description string
}

var spendings = map[SpendKind]spending{
	SpendCVDownload:     {TxSpendDownload, ActivityResumeDownloaded, "Downloaded resume (%s template)"},
	SpendAISuggestion:   {TxSpendAISuggestion, ActivityAISuggestion, "Used AI suggestion"},
	SpendTemplateUnlock: {TxSpendTemplateUnlock, ActivityTemplateUnlocked, "Unlocked %s template"},
}

func ParseSpendKind(s string) (SpendKind, error) {
	k := SpendKind(s)
	if _, ok := spendings[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownActivity, s)
	}
	return k, nil
}

func (k SpendKind) Valid() bool {
	_, ok := spendings[k]
	return ok
}

func (k SpendKind) TransactionType() TransactionType { return spendings[k].tx }
func (k SpendKind) ActivityKind() ActivityKind       { return spendings[k].activity }

// TemplateAction reports whether the spend refers to a catalog template.
func (k SpendKind) TemplateAction() bool {
	return k == SpendCVDownload || k == SpendTemplateUnlock
}

func (k SpendKind) Describe(templateName string) string {
	s := spendings[k]
	if k.TemplateAction() {
		return fmt.Sprintf(s.description, templateName)
	}
	return s.description
}
