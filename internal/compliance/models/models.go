// Package models holds the tier limit table and per-account exchange usage.
package models

import (
	"time"

	id "custody/pkg/domain"
)

// LimitConfig is one tier's exchange limits in base units.
type LimitConfig struct {
	DailyLimit                    int64 `json:"daily_limit"`
	MonthlyLimit                  int64 `json:"monthly_limit"`
	EnhancedVerificationThreshold int64 `json:"enhanced_verification_threshold"`
}

// limitTable is enumerated per tier. Tier 0 has no entry and is always rejected;
// adding a tier is a data change here.
var limitTable = map[id.Tier]LimitConfig{
	1: {DailyLimit: 1_000_000, MonthlyLimit: 10_000_000, EnhancedVerificationThreshold: 500_000},
	2: {DailyLimit: 5_000_000, MonthlyLimit: 50_000_000, EnhancedVerificationThreshold: 2_000_000},
	3: {DailyLimit: 20_000_000, MonthlyLimit: 200_000_000, EnhancedVerificationThreshold: 10_000_000},
	4: {DailyLimit: 100_000_000, MonthlyLimit: 1_000_000_000, EnhancedVerificationThreshold: 50_000_000},
}

// LimitsFor returns the tier's limits; ok is false for tiers without limits.
func LimitsFor(tier id.Tier) (LimitConfig, bool) {
	cfg, ok := limitTable[tier]
	return cfg, ok
}

// Usage is an account's exchange volume in the current daily and monthly windows.
type Usage struct {
	Account        id.AccountID `json:"account"`
	DailyUsed      int64        `json:"daily_used"`
	MonthlyUsed    int64        `json:"monthly_used"`
	DailyResetAt   time.Time    `json:"daily_reset_at"`
	MonthlyResetAt time.Time    `json:"monthly_reset_at"`
}

// NewUsage starts empty windows at now.
func NewUsage(account id.AccountID, now time.Time) *Usage {
	return &Usage{
		Account:        account,
		DailyResetAt:   NextDailyReset(now),
		MonthlyResetAt: NextMonthlyReset(now),
	}
}

// Roll resets each elapsed window to zero and schedules its next boundary from now.
// However many windows have elapsed, a window resets once.
func (u *Usage) Roll(now time.Time) (dailyReset, monthlyReset bool) {
	if !now.Before(u.DailyResetAt) {
		u.DailyUsed = 0
		u.DailyResetAt = NextDailyReset(now)
		dailyReset = true
	}
	if !now.Before(u.MonthlyResetAt) {
		u.MonthlyUsed = 0
		u.MonthlyResetAt = NextMonthlyReset(now)
		monthlyReset = true
	}
	return dailyReset, monthlyReset
}

// NextDailyReset is the next UTC midnight after now.
func NextDailyReset(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

// NextMonthlyReset is the first instant of the next UTC month.
func NextMonthlyReset(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}

// Quota is what remains in each window.
type Quota struct {
	DailyRemaining   int64     `json:"daily_remaining"`
	MonthlyRemaining int64     `json:"monthly_remaining"`
	DailyResetAt     time.Time `json:"daily_reset_at"`
	MonthlyResetAt   time.Time `json:"monthly_reset_at"`
}

// QuotaOf computes the remaining quota of u under limits.
func QuotaOf(u *Usage, limits LimitConfig) Quota {
	return Quota{
		DailyRemaining:   max(limits.DailyLimit-u.DailyUsed, 0),
		MonthlyRemaining: max(limits.MonthlyLimit-u.MonthlyUsed, 0),
		DailyResetAt:     u.DailyResetAt,
		MonthlyResetAt:   u.MonthlyResetAt,
	}
}

// Status is a read-only compliance snapshot for external callers.
type Status struct {
	Account            id.AccountID `json:"account"`
	Tier               id.Tier      `json:"tier"`
	Limits             LimitConfig  `json:"limits"`
	DailyUsed          int64        `json:"daily_used"`
	MonthlyUsed        int64        `json:"monthly_used"`
	Quota              Quota        `json:"quota"`
	EnhancedVerified   bool         `json:"enhanced_verified"`
	ExchangesPermitted bool         `json:"exchanges_permitted"`
}
