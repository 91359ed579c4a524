// Package assembler builds the grounding context for a completion prompt.
// Sections are keyword-gated on the lowercased question so the prompt only
// carries what the question needs; a handful of sections (system specs,
// thresholds, location) are load-bearing for every answer and appear
// whenever the data exists.
package assembler

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/prostat/joule-agent/internal/cache"
	"github.com/prostat/joule-agent/internal/calc"
	"github.com/prostat/joule-agent/internal/knowledge"
	"github.com/prostat/joule-agent/internal/settings"
	"github.com/prostat/joule-agent/internal/telemetry"
	"github.com/prostat/joule-agent/internal/weather"
)

// BalancePointCacheKey is where dashboard pages publish their most recent
// balance point computation for cross-page reuse.
const BalancePointCacheKey = "balancePoint"

// balancePointFreshFor bounds how old a cached balance point may be before
// the assembler falls through to an estimate.
const balancePointFreshFor = time.Hour

// weatherLookupTimeout bounds the best-effort outdoor lookup so a slow
// weather API never stalls answer assembly.
const weatherLookupTimeout = 3 * time.Second

// forecastStaleAfter is the freshness threshold for cached forecast data.
const forecastStaleAfter = 24 * time.Hour

// WeatherSource fetches current conditions for a coordinate pair.
type WeatherSource interface {
	Fetch(ctx context.Context, lat, lon float64) (*weather.Current, error)
}

// KnowledgeSource retrieves reference text for a question.
type KnowledgeSource interface {
	Retrieve(query string, budget int) string
}

// Analysis carries measured results from the dashboard's runtime CSV
// analysis, when the user has run one.
type Analysis struct {
	HeatLossFactor  float64   `json:"heatLossFactor,omitempty"` // BTU/hr per °F, measured
	BalancePoint    float64   `json:"balancePoint,omitempty"`   // °F, measured
	ShortCycling    bool      `json:"shortCycling,omitempty"`
	Recommendations []string  `json:"recommendations,omitempty"`
	GeneratedAt     time.Time `json:"generatedAt,omitempty"`
}

// ForecastDay is one day of cached forecast data.
type ForecastDay struct {
	Date  string  `json:"date"`
	HighF float64 `json:"high"`
	LowF  float64 `json:"low"`
}

// Forecast is the cached multi-day forecast, with its fetch time for
// staleness reporting.
type Forecast struct {
	Days      []ForecastDay `json:"days"`
	FetchedAt time.Time     `json:"fetchedAt"`
}

// Input is everything one question's context can draw on.
type Input struct {
	Question string
	Live     *telemetry.LiveData
	Settings *settings.Settings
	Analysis *Analysis
	Forecast *Forecast
}

// Assembler builds context strings. All collaborators are optional; a nil
// source simply disables the sections that need it.
type Assembler struct {
	weather   WeatherSource
	knowledge KnowledgeSource
	cache     *cache.Cache
	log       *slog.Logger
	now       func() time.Time
}

// New creates an assembler. c is the session cache shared with the
// dashboard pages; it may be nil.
func New(w WeatherSource, k KnowledgeSource, c *cache.Cache, log *slog.Logger) *Assembler {
	if log == nil {
		log = slog.Default()
	}
	return &Assembler{weather: w, knowledge: k, cache: c, log: log, now: time.Now}
}

// Section trigger vocabularies, matched against the lowercased question.
var (
	diagnosticsRe = regexp.MustCompile(`\b(cfm|watt|amp(s|erage)?\b|supply air|return air|static pressure|airflow|sensor)`)
	heavyRe       = regexp.MustCompile(`short.?cycl|heat loss factor|runtime analysis|csv`)
	forecastRe    = regexp.MustCompile(`\b(forecast|tomorrow|tonight|next (week|month|[a-z]+day)|this (week|weekend)|in \d+ days?|upcoming|will it|cold snap)`)
	currentRe     = regexp.MustCompile(`\b(temp(erature)?s?\b|outside|outdoor|weather|mode|running|right now|currently|humidity)`)
	costRe        = regexp.MustCompile(`\b(cost|bill|price|rate|dollar|expens|spend|cheap)|\$`)
	balanceRe     = regexp.MustCompile(`balance.?point|lockout|\baux(iliary)?\b|strip heat|switch.?over|crossover`)
	lockoutRe     = regexp.MustCompile(`lockout`)
	comfortRe     = regexp.MustCompile(`\b(comfort|set.?point|sleep|what temp|recommended temp|should i set)`)
	technicalRe   = regexp.MustCompile(`\b(manual j|ashrae|hspf2?\b|seer2?\b|cop\b|btu|subcool|superheat|standard|spec(ification)? sheet|technical)`)
)

// Build assembles the context for question. It never fails: sections that
// cannot be produced are omitted or replaced with a diagnostic sentence,
// per section contract.
func (a *Assembler) Build(ctx context.Context, in Input) string {
	q := strings.ToLower(in.Question)
	cfg := in.Settings
	if cfg == nil {
		cfg = &settings.Settings{}
	}

	var sections []string
	add := func(s string) {
		if s != "" {
			sections = append(sections, s)
		}
	}

	if currentRe.MatchString(q) {
		add(a.currentSection(ctx, in.Live, cfg.Location))
	}
	if diagnosticsRe.MatchString(q) {
		add(diagnosticsSection(in.Live))
	}
	if heavyRe.MatchString(q) {
		add(analysisSection(in.Analysis))
	}
	if forecastRe.MatchString(q) {
		add(a.forecastSection(in.Forecast))
	}
	add(specsSection(cfg, costRe.MatchString(q)))
	add(thresholdsSection(cfg.Thresholds))
	if balanceRe.MatchString(q) {
		add(a.balanceSection(cfg, lockoutRe.MatchString(q)))
	}
	add(locationSection(cfg.Location))
	if comfortRe.MatchString(q) {
		add(a.comfortSection())
	}
	add(a.knowledgeSection(in.Question, technicalRe.MatchString(q)))

	return strings.Join(sections, "\n\n")
}

func (a *Assembler) currentSection(ctx context.Context, live *telemetry.LiveData, loc *settings.Location) string {
	var lines []string
	if live != nil {
		if live.IndoorTemp != nil {
			lines = append(lines, fmt.Sprintf("Indoor temperature: %.1f°F", *live.IndoorTemp))
		}
		if live.OutdoorTemp != nil {
			lines = append(lines, fmt.Sprintf("Outdoor temperature: %.1f°F", *live.OutdoorTemp))
		}
		if live.HumidityPct != nil {
			lines = append(lines, fmt.Sprintf("Humidity: %.0f%%", *live.HumidityPct))
		}
		if live.Mode != "" {
			lines = append(lines, "System mode: "+live.Mode)
		}
		if live.PowerWatts != nil {
			lines = append(lines, fmt.Sprintf("Compressor draw: %.0f W", *live.PowerWatts))
		}
		if live.AuxActive != nil && *live.AuxActive {
			lines = append(lines, "Auxiliary heat is currently active")
		}
	}

	// Without a live outdoor reading, try the weather API before giving up.
	haveOutdoor := live != nil && live.OutdoorTemp != nil
	if !haveOutdoor && a.weather != nil && loc.HasCoordinates() {
		wctx, cancel := context.WithTimeout(ctx, weatherLookupTimeout)
		defer cancel()
		cur, err := a.weather.Fetch(wctx, loc.Latitude, loc.Longitude)
		if err != nil {
			a.log.Debug("weather lookup failed", "error", err)
		} else {
			lines = append(lines, fmt.Sprintf("Outdoor temperature (from weather service): %.1f°F, humidity %.0f%%",
				cur.TemperatureF, cur.HumidityPct))
		}
	}

	if len(lines) == 0 {
		return ""
	}
	return "Current conditions:\n" + strings.Join(lines, "\n")
}

// diagnosticsSection reports what the hardware can and cannot measure.
// Static and refrigerant pressures have no sensors in this product, so
// questions about them get a structural answer rather than silence.
func diagnosticsSection(live *telemetry.LiveData) string {
	avail := func(p *float64) string {
		if p != nil {
			return "available"
		}
		return "not reporting"
	}
	var b strings.Builder
	b.WriteString("Sensor diagnostics:\n")
	if live == nil {
		b.WriteString("Live telemetry feed is offline; no sensor readings available right now.\n")
	} else {
		fmt.Fprintf(&b, "Airflow (CFM): %s\n", avail(live.FanCFM))
		fmt.Fprintf(&b, "Compressor power (W): %s\n", avail(live.PowerWatts))
		fmt.Fprintf(&b, "Supply air temperature: %s\n", avail(live.SupplyTemp))
		fmt.Fprintf(&b, "Return air temperature: %s\n", avail(live.ReturnTemp))
	}
	b.WriteString("Static pressure and refrigerant pressures are not measured by this system; gauge readings require a technician.")
	return b.String()
}

func analysisSection(an *Analysis) string {
	if an == nil {
		return "Runtime analysis: no uploaded runtime data has been analyzed yet."
	}
	var lines []string
	if an.HeatLossFactor > 0 {
		lines = append(lines, fmt.Sprintf("Measured heat loss factor: %.0f BTU/hr per °F", an.HeatLossFactor))
	}
	if an.BalancePoint != 0 {
		lines = append(lines, fmt.Sprintf("Measured balance point: %.1f°F", an.BalancePoint))
	}
	if an.ShortCycling {
		lines = append(lines, "Short cycling detected in recent runtime data")
	}
	for _, r := range an.Recommendations {
		lines = append(lines, "Recommendation: "+r)
	}
	if len(lines) == 0 {
		return "Runtime analysis: analysis ran but produced no findings."
	}
	return "Runtime analysis (measured from your data):\n" + strings.Join(lines, "\n")
}

func (a *Assembler) forecastSection(fc *Forecast) string {
	if fc == nil || len(fc.Days) == 0 {
		return "Forecast: no forecast data is available for your location."
	}
	var b strings.Builder
	b.WriteString("Forecast:\n")
	if age := a.now().Sub(fc.FetchedAt); age > forecastStaleAfter {
		days := int(math.Round(age.Hours() / 24))
		fmt.Fprintf(&b, "Note: forecast data is %d day(s) old and may be stale.\n", days)
	}
	for _, d := range fc.Days {
		fmt.Fprintf(&b, "%s: high %.0f°F, low %.0f°F\n", d.Date, d.HighF, d.LowF)
	}
	return strings.TrimRight(b.String(), "\n")
}

func specsSection(cfg *settings.Settings, includeRates bool) string {
	var lines []string
	if cfg.Capacity > 0 {
		lines = append(lines, fmt.Sprintf("Heating capacity: %.0f kBTU/hr (%.1f tons)", cfg.Capacity, cfg.Capacity*1000/calc.BTUPerTon))
	}
	if cfg.HSPF2 > 0 {
		lines = append(lines, fmt.Sprintf("HSPF2: %.1f", cfg.HSPF2))
	}
	if cfg.SEER2 > 0 {
		lines = append(lines, fmt.Sprintf("SEER2: %.1f", cfg.SEER2))
	}
	if cfg.SystemType != "" {
		lines = append(lines, "System type: "+cfg.SystemType)
	}
	if cfg.SquareFeet > 0 {
		lines = append(lines, fmt.Sprintf("Conditioned area: %.0f sq ft", cfg.SquareFeet))
	}
	if includeRates && cfg.ElectricRate > 0 {
		lines = append(lines, fmt.Sprintf("Electric rate: $%.3f/kWh", cfg.ElectricRate))
	}
	if len(lines) == 0 {
		return ""
	}
	return "System specs:\n" + strings.Join(lines, "\n")
}

// thresholdsSection is never keyword-gated: control thresholds shape every
// other answer about system behavior.
func thresholdsSection(th *settings.Thresholds) string {
	if th == nil {
		return ""
	}
	var lines []string
	if th.HeatDifferential > 0 {
		lines = append(lines, fmt.Sprintf("Heat differential: %.1f°F", th.HeatDifferential))
	}
	if th.CoolDifferential > 0 {
		lines = append(lines, fmt.Sprintf("Cool differential: %.1f°F", th.CoolDifferential))
	}
	if th.MinRunMinutes > 0 {
		lines = append(lines, fmt.Sprintf("Minimum run time: %d min", th.MinRunMinutes))
	}
	if th.MinOffMinutes > 0 {
		lines = append(lines, fmt.Sprintf("Minimum off time: %d min", th.MinOffMinutes))
	}
	if th.CompressorLockout != 0 {
		lines = append(lines, fmt.Sprintf("Compressor lockout: %.0f°F", th.CompressorLockout))
	}
	if th.AuxLockout != 0 {
		lines = append(lines, fmt.Sprintf("Aux heat lockout: %.0f°F", th.AuxLockout))
	}
	if len(lines) == 0 {
		return ""
	}
	return "Configured thresholds:\n" + strings.Join(lines, "\n")
}

// climateBands maps latitude buckets to a typical balance point for
// systems installed in that climate. Used only when neither a fresh cached
// value nor a defined physics result is preferable.
var climateBands = []struct {
	maxLat   float64 // band applies below this absolute latitude
	estimate float64 // °F
}{
	{28, 20},
	{32, 24},
	{36, 27},
	{40, 30},
	{44, 32},
	{48, 34},
	{math.MaxFloat64, 36},
}

func climateBandEstimate(lat float64) float64 {
	abs := math.Abs(lat)
	for _, band := range climateBands {
		if abs < band.maxLat {
			return band.estimate
		}
	}
	return climateBands[len(climateBands)-1].estimate
}

func (a *Assembler) balanceSection(cfg *settings.Settings, wantsLockout bool) string {
	bp, source, diag := a.resolveBalancePoint(cfg)
	if diag != "" {
		return "Balance point: " + diag
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Balance point: approximately %.0f°F (%s).", bp, source)
	if wantsLockout {
		lockout, clamped := calc.RecommendedLockout(bp)
		fmt.Fprintf(&b, "\nRecommended compressor lockout: %.0f°F.", lockout)
		if clamped {
			b.WriteString(" This was raised to the 15°F minimum safe lockout to protect the compressor.")
		}
	}
	return b.String()
}

// resolveBalancePoint applies the three-tier fallback: fresh cached value,
// latitude climate band, then a physics computation over merged settings.
func (a *Assembler) resolveBalancePoint(cfg *settings.Settings) (bp float64, source, diag string) {
	if a.cache != nil {
		if v, age, ok := a.cache.GetWithAge(BalancePointCacheKey); ok && age < balancePointFreshFor {
			if f, ok := v.(float64); ok {
				return f, "computed recently on the dashboard", ""
			}
		}
	}

	if cfg.Location.HasCoordinates() {
		return climateBandEstimate(cfg.Location.Latitude), "estimated from your latitude", ""
	}

	var defaulted []string
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 36
		defaulted = append(defaulted, "capacity")
	}
	sqft := cfg.SquareFeet
	if sqft <= 0 {
		sqft = 2000
		defaulted = append(defaulted, "square footage")
	}
	res := calc.BalancePoint(calc.BalancePointInput{
		CapacityBTU:   capacity * 1000,
		SquareFeet:    sqft,
		InsulationLvl: cfg.InsulationLevel,
		HomeShape:     cfg.HomeShape,
		CeilingHeight: cfg.CeilingHeight,
	})
	if !res.Defined {
		msg := "could not be determined"
		if len(defaulted) > 0 {
			msg += "; using assumed " + strings.Join(defaulted, " and ")
		}
		return 0, "", msg + ". Set your system capacity and home size in settings for a grounded estimate."
	}
	source = "computed from your settings"
	if len(defaulted) > 0 {
		source = "computed with assumed " + strings.Join(defaulted, " and ")
	}
	return res.BalancePoint, source, ""
}

func locationSection(loc *settings.Location) string {
	switch {
	case loc.HasCityState():
		s := fmt.Sprintf("Location: %s, %s", loc.City, loc.State)
		if loc.HasCoordinates() {
			s += fmt.Sprintf(" (%.4f, %.4f)", loc.Latitude, loc.Longitude)
		}
		if loc.Elevation > 0 {
			s += fmt.Sprintf(", elevation %.0f ft", loc.Elevation)
		}
		return s
	case loc.HasCoordinates():
		s := fmt.Sprintf("Location: coordinates %.4f, %.4f (no city on file)", loc.Latitude, loc.Longitude)
		if loc.Elevation > 0 {
			s += fmt.Sprintf(", elevation %.0f ft", loc.Elevation)
		}
		return s
	case loc != nil && loc.Elevation > 0:
		return fmt.Sprintf("Location: only elevation is known (%.0f ft); no city or coordinates on file.", loc.Elevation)
	default:
		return "Location: not set. Add a city/state or coordinates in settings to ground climate estimates."
	}
}

func (a *Assembler) comfortSection() string {
	var optimal, lo, hi, sleep float64
	switch a.now().Month() {
	case time.December, time.January, time.February:
		optimal, lo, hi, sleep = 70, 68, 72, 66
	case time.June, time.July, time.August:
		optimal, lo, hi, sleep = 75, 73, 78, 78
	default:
		optimal, lo, hi, sleep = 72, 70, 75, 68
	}
	return fmt.Sprintf("Comfort guidance for this season: optimal %.0f°F, acceptable range %.0f–%.0f°F, sleep setpoint %.0f°F.",
		optimal, lo, hi, sleep)
}

func (a *Assembler) knowledgeSection(question string, technical bool) string {
	if a.knowledge == nil {
		return ""
	}
	budget := knowledge.BudgetStandard
	if technical {
		budget = knowledge.BudgetTechnical
	}
	text := a.knowledge.Retrieve(question, budget)
	if text == "" {
		return ""
	}
	return "Reference material:\n" + text
}
