package strategyconfig

import "time"

// Config는 갭 스캐너 전략의 전체 설정 (프로세스 수명 동안 불변)
type Config struct {
	Meta         Meta         `yaml:"meta" json:"meta"`
	Session      Session      `yaml:"session" json:"session"`
	Selection    Selection    `yaml:"selection" json:"selection"`
	History      History      `yaml:"history" json:"history"`
	Tradeability Tradeability `yaml:"tradeability" json:"tradeability"`
	Liquidity    Liquidity    `yaml:"liquidity" json:"liquidity"`
	Heartbeat    Heartbeat    `yaml:"heartbeat" json:"heartbeat"`
	Scoring      Scoring      `yaml:"scoring" json:"scoring"`
	Enrichment   Enrichment   `yaml:"enrichment" json:"enrichment"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id" default:"us_gap_scanner" validate:"required"`
	Version    string `yaml:"version" json:"version" default:"1"`
	Timezone   string `yaml:"timezone" json:"timezone" default:"America/New_York" validate:"required"`
}

// Session 시간대 구간 (HH:MM, exchange local)
type Session struct {
	PremarketStart  string  `yaml:"premarket_start" json:"premarket_start" default:"04:00"`
	PremarketEnd    string  `yaml:"premarket_end" json:"premarket_end" default:"09:30"`
	ExtendPremarket bool    `yaml:"extend_premarket" json:"extend_premarket"`
	MarketOpen      string  `yaml:"market_open" json:"market_open" default:"09:30"`
	MarketClose     string  `yaml:"market_close" json:"market_close" default:"16:00"`
	Cadence         Cadence `yaml:"cadence" json:"cadence"`
}

// Cadence polling interval schedule
type Cadence struct {
	EarlyMinutes    int    `yaml:"early_minutes" json:"early_minutes" default:"30" validate:"min=1"`
	ApproachStart   string `yaml:"approach_start" json:"approach_start" default:"09:00"`
	ApproachMinutes int    `yaml:"approach_minutes" json:"approach_minutes" default:"15" validate:"min=1"`
	FinalStart      string `yaml:"final_start" json:"final_start" default:"09:15"`
	FinalMinutes    int    `yaml:"final_minutes" json:"final_minutes" default:"5" validate:"min=1"`
}

// Selection 최종 픽 윈도우 및 후보 풀
type Selection struct {
	WindowStart   string        `yaml:"window_start" json:"window_start" default:"09:30"`
	WindowEnd     string        `yaml:"window_end" json:"window_end" default:"09:35"`
	CandidatePool int           `yaml:"candidate_pool" json:"candidate_pool" default:"25" validate:"min=1,max=500"`
	WatchlistSize int           `yaml:"watchlist_size" json:"watchlist_size" default:"5" validate:"min=1"`
	SnapshotLimit int           `yaml:"snapshot_limit" json:"snapshot_limit" default:"250" validate:"min=1,max=250"`
	TickTimeout   time.Duration `yaml:"tick_timeout" json:"tick_timeout" default:"2m" validate:"gt=0"`
}

// History 티커별 관측 큐
type History struct {
	Capacity int `yaml:"capacity" json:"capacity" default:"5" validate:"min=2"`
}

// Tradeability 구조/가격 결격 필터
type Tradeability struct {
	// Allowlist skips the suffix check only. Deficiency still applies.
	Allowlist  []string   `yaml:"allowlist" json:"allowlist"`
	TypeCheck  TypeCheck  `yaml:"type_check" json:"type_check"`
	Deficiency Deficiency `yaml:"deficiency" json:"deficiency"`
}

// TypeCheck provider reference-data exclusion (one lookup per candidate, cached)
type TypeCheck struct {
	Enabled       bool     `yaml:"enabled" json:"enabled"`
	ExcludedTypes []string `yaml:"excluded_types" json:"excluded_types" default:"[\"ADRC\",\"WARRANT\",\"RIGHT\",\"UNIT\"]"`
}

// Deficiency minimum bid price rule
type Deficiency struct {
	Enabled      bool    `yaml:"enabled" json:"enabled" default:"true"`
	LookbackDays int     `yaml:"lookback_days" json:"lookback_days" default:"45" validate:"min=1"`
	BelowStreak  int     `yaml:"below_streak" json:"below_streak" default:"30" validate:"min=1"`
	GraceDays    int     `yaml:"grace_days" json:"grace_days" default:"10" validate:"min=1"`
	MinClose     float64 `yaml:"min_close" json:"min_close" default:"1.0" validate:"gt=0"`
	ResetDaily   bool    `yaml:"reset_daily" json:"reset_daily" default:"true"`
}

// Liquidity 세션별 임계값. Premarket/Regular가 우선, Default는 0인 필드만 채움
type Liquidity struct {
	Default   Thresholds `yaml:"default" json:"default"`
	Premarket Thresholds `yaml:"premarket" json:"premarket"`
	Regular   Thresholds `yaml:"regular" json:"regular"`
}

// Thresholds for one session
type Thresholds struct {
	MinPrice        float64 `yaml:"min_price" json:"min_price" validate:"gte=0"`
	MinVolume       int64   `yaml:"min_volume" json:"min_volume" validate:"gte=0"`
	MinAvgVolume    int64   `yaml:"min_avg_volume" json:"min_avg_volume" validate:"gte=0"`
	MinDollarVolume float64 `yaml:"min_dollar_volume" json:"min_dollar_volume" validate:"gte=0"`
	RequirePrices   *bool   `yaml:"require_prices" json:"require_prices"`
}

// Heartbeat 활성/정체 판정
type Heartbeat struct {
	PreOpenLookbackMin   int     `yaml:"pre_open_lookback_min" json:"pre_open_lookback_min" default:"30" validate:"min=1"`
	OpenLookbackMin      int     `yaml:"open_lookback_min" json:"open_lookback_min" default:"5" validate:"min=1"`
	MiddayCutoff         string  `yaml:"midday_cutoff" json:"midday_cutoff" default:"12:00"`
	AfternoonLookbackMin int     `yaml:"afternoon_lookback_min" json:"afternoon_lookback_min" default:"30" validate:"min=1"`
	MinPctChange         float64 `yaml:"min_pct_change" json:"min_pct_change" default:"0.5" validate:"gte=0"`
	MinVolumeGrowth      int64   `yaml:"min_volume_growth" json:"min_volume_growth" default:"1000" validate:"gte=0"`
}

// Scoring 복합 점수 가중치
type Scoring struct {
	Weights              Weights `yaml:"weights" json:"weights"`
	DecayPerHour         float64 `yaml:"decay_per_hour" json:"decay_per_hour" default:"0.1" validate:"gte=0"`
	DecayFloor           float64 `yaml:"decay_floor" json:"decay_floor" default:"0.4" validate:"gte=0,lte=1"`
	DeltaWindowMin       int     `yaml:"delta_window_min" json:"delta_window_min" default:"30" validate:"min=1"`
	IntradayGapReference string  `yaml:"intraday_gap_reference" json:"intraday_gap_reference" default:"open" validate:"oneof=open prev_close"`
}

// Weights per component
type Weights struct {
	Gap            float64 `yaml:"gap" json:"gap" default:"0.2" validate:"gte=0"`
	Delta          float64 `yaml:"delta" json:"delta" default:"0.3" validate:"gte=0"`
	VolumeRate     float64 `yaml:"volume_rate" json:"volume_rate" default:"0.15" validate:"gte=0"`
	AbsVolumeScale float64 `yaml:"abs_volume_scale" json:"abs_volume_scale" default:"5" validate:"gte=0"`
	AbsVolumeCap   float64 `yaml:"abs_volume_cap" json:"abs_volume_cap" default:"15" validate:"gte=0"`
	HeartbeatBonus float64 `yaml:"heartbeat_bonus" json:"heartbeat_bonus" default:"20" validate:"gte=0"`
}

// Enrichment ATR / RVOL 계산 파라미터
type Enrichment struct {
	AvgVolumeDays     int     `yaml:"avg_volume_days" json:"avg_volume_days" default:"20" validate:"min=1"`
	ATRPeriod         int     `yaml:"atr_period" json:"atr_period" default:"14" validate:"min=1"`
	ATRFallback       float64 `yaml:"atr_fallback" json:"atr_fallback" default:"1.0" validate:"gt=0"`
	DailyCalendarDays int     `yaml:"daily_calendar_days" json:"daily_calendar_days" default:"70" validate:"min=1"`
	PremarketHigh     bool    `yaml:"premarket_high" json:"premarket_high" default:"true"`
}

// For resolves the effective thresholds of a session.
// Session fields win; zero fields fall back to Default.
func (l Liquidity) For(session string) Thresholds {
	s := l.Regular
	if session == "premarket" {
		s = l.Premarket
	}
	d := l.Default

	if s.MinPrice == 0 {
		s.MinPrice = d.MinPrice
	}
	if s.MinVolume == 0 {
		s.MinVolume = d.MinVolume
	}
	if s.MinAvgVolume == 0 {
		s.MinAvgVolume = d.MinAvgVolume
	}
	if s.MinDollarVolume == 0 {
		s.MinDollarVolume = d.MinDollarVolume
	}
	if s.RequirePrices == nil {
		s.RequirePrices = d.RequirePrices
	}
	return s
}

// Requires reports require_prices, defaulting to true
func (t Thresholds) Requires() bool {
	return t.RequirePrices == nil || *t.RequirePrices
}

// IsAllowlisted reports whether the ticker skips the suffix check
func (t Tradeability) IsAllowlisted(ticker string) bool {
	for _, a := range t.Allowlist {
		if a == ticker {
			return true
		}
	}
	return false
}
