package strategyconfig

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

var (
	validate = validator.New()
	hhmmRe   = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// Validate checks field rules (validator tags) and cross-field rules
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return ValidationError{fe.Namespace(), fmt.Sprintf("failed '%s=%s'", fe.Tag(), fe.Param())}
		}
		return err
	}

	if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
		return ValidationError{"meta.timezone", err.Error()}
	}

	// === Session ===
	s := cfg.Session
	times := map[string]string{
		"session.premarket_start":        s.PremarketStart,
		"session.premarket_end":          s.PremarketEnd,
		"session.market_open":            s.MarketOpen,
		"session.market_close":           s.MarketClose,
		"session.cadence.approach_start": s.Cadence.ApproachStart,
		"session.cadence.final_start":    s.Cadence.FinalStart,
		"selection.window_start":         cfg.Selection.WindowStart,
		"selection.window_end":           cfg.Selection.WindowEnd,
		"heartbeat.midday_cutoff":        cfg.Heartbeat.MiddayCutoff,
	}
	for field, v := range times {
		if err := validateHHMM(v); err != nil {
			return ValidationError{field, err.Error()}
		}
	}

	if !before(s.PremarketStart, s.PremarketEnd) {
		return ValidationError{"session.premarket", "start must be before end"}
	}
	if !s.ExtendPremarket && before(s.MarketOpen, s.PremarketEnd) {
		return ValidationError{"session.premarket_end", "must not exceed market_open unless extend_premarket"}
	}
	if !before(s.MarketOpen, s.MarketClose) {
		return ValidationError{"session.market_open", "must be before market_close"}
	}
	if before(s.Cadence.FinalStart, s.Cadence.ApproachStart) {
		return ValidationError{"session.cadence", "approach_start must not be after final_start"}
	}

	// === Selection ===
	sel := cfg.Selection
	if !before(sel.WindowStart, sel.WindowEnd) {
		return ValidationError{"selection.window", "start must be before end"}
	}
	if before(sel.WindowStart, s.MarketOpen) {
		return ValidationError{"selection.window_start", "must not be before market_open"}
	}
	if before(s.MarketClose, sel.WindowEnd) {
		return ValidationError{"selection.window_end", "must not be after market_close"}
	}

	// === Tradeability ===
	d := cfg.Tradeability.Deficiency
	if d.Enabled && d.LookbackDays < d.BelowStreak {
		return ValidationError{"tradeability.deficiency.lookback_days", "must be >= below_streak"}
	}

	// === Enrichment ===
	if cfg.Enrichment.DailyCalendarDays < cfg.Enrichment.AvgVolumeDays {
		return ValidationError{"enrichment.daily_calendar_days", "must cover avg_volume_days"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	pre := cfg.Liquidity.For("premarket")
	reg := cfg.Liquidity.For("regular")

	// 프리마켓 거래량은 정규장보다 작음. 역전 시 빈 결과 위험
	if pre.MinVolume > reg.MinVolume {
		warnings = append(warnings, Warning{
			Code:    "SESSION_MISMATCH",
			Message: "premarket min_volume exceeds regular min_volume: premarket scans may return nothing",
		})
	}

	if !cfg.Tradeability.Deficiency.Enabled {
		warnings = append(warnings, Warning{
			Code:    "DEFICIENCY_DISABLED",
			Message: "sub-$1 deficiency check disabled",
		})
	}

	if cfg.Selection.CandidatePool > 100 {
		warnings = append(warnings, Warning{
			Code:    "HIGH_PROVIDER_LOAD",
			Message: "candidate_pool > 100: several bar requests per ticker per tick",
		})
	}

	if cfg.Session.ExtendPremarket {
		warnings = append(warnings, Warning{
			Code:    "PREMARKET_EXTENDED",
			Message: "premarket window extends past market_open",
		})
	}

	return warnings
}

// === Helper Functions ===

func validateHHMM(s string) error {
	if !hhmmRe.MatchString(s) {
		return errors.New("must be HH:MM format")
	}
	_, err := time.Parse("15:04", s)
	return err
}

// before reports a < b for valid HH:MM strings
func before(a, b string) bool {
	ta, _ := time.Parse("15:04", a)
	tb, _ := time.Parse("15:04", b)
	return ta.Before(tb)
}

// ParseClock converts HH:MM into minutes after midnight
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
