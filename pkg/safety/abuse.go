package safety

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

type AbuseConfig struct {
	Window time.Duration
	// MaxRequests per client inside Window
	MaxRequests int
	// MaxBotRequests applies instead when the user agent looks automated
	MaxBotRequests int
	// MaxErrors before a client is blocked
	MaxErrors int
	// ErrorRetention is how long an idle client's error count is kept
	ErrorRetention time.Duration
}

func DefaultAbuseConfig() AbuseConfig {
	return AbuseConfig{
		Window:         time.Hour,
		MaxRequests:    100,
		MaxBotRequests: 10,
		MaxErrors:      50,
		ErrorRetention: 24 * time.Hour,
	}
}

var (
	botMarkers = []string{"bot", "crawler", "spider", "scraper"}

	suspiciousPatterns = []*regexp.Regexp{
		regexp.MustCompile(`<script`),
		regexp.MustCompile(`javascript:`),
		regexp.MustCompile(`eval\(`),
		regexp.MustCompile(`document\.`),
		regexp.MustCompile(`window\.`),
		regexp.MustCompile(`alert\(`),
		regexp.MustCompile(`prompt\(`),
		regexp.MustCompile(`confirm\(`),
	}
)

type requestWindow struct {
	stamps []time.Time
}

// AbuseDetector tracks per-client request rates and error counts. Idle
// clients fall out of the underlying caches on their own.
type AbuseDetector struct {
	cfg      AbuseConfig
	mu       sync.Mutex
	requests *cache.Cache
	errors   *cache.Cache
	now      func() time.Time
}

func NewAbuseDetector(cfg AbuseConfig) *AbuseDetector {
	def := DefaultAbuseConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = def.MaxRequests
	}
	if cfg.MaxBotRequests <= 0 {
		cfg.MaxBotRequests = def.MaxBotRequests
	}
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = def.MaxErrors
	}
	if cfg.ErrorRetention <= 0 {
		cfg.ErrorRetention = def.ErrorRetention
	}
	return &AbuseDetector{
		cfg:      cfg,
		requests: cache.New(cfg.Window, 10*time.Minute),
		errors:   cache.New(cfg.ErrorRetention, 30*time.Minute),
		now:      time.Now,
	}
}

// CheckRequest records one request from client and reports whether the
// client is over its rate inside the sliding window.
func (d *AbuseDetector) CheckRequest(client, userAgent string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	cutoff := now.Add(-d.cfg.Window)

	w := &requestWindow{}
	if v, ok := d.requests.Get(client); ok {
		w = v.(*requestWindow)
	}
	i := 0
	for i < len(w.stamps) && w.stamps[i].Before(cutoff) {
		i++
	}
	w.stamps = append(w.stamps[i:], now)
	d.requests.SetDefault(client, w)

	n := len(w.stamps)
	if n > d.cfg.MaxRequests {
		return true
	}
	return looksAutomated(userAgent) && n > d.cfg.MaxBotRequests
}

// CheckMessage reports whether the message carries script-like content
func (d *AbuseDetector) CheckMessage(message string) bool {
	lower := strings.ToLower(message)
	for _, p := range suspiciousPatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

func (d *AbuseDetector) RecordError(client string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	if v, ok := d.errors.Get(client); ok {
		n = v.(int)
	}
	d.errors.SetDefault(client, n+1)
}

func (d *AbuseDetector) IsBlocked(client string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := d.errors.Get(client)
	return ok && v.(int) > d.cfg.MaxErrors
}

func looksAutomated(userAgent string) bool {
	if userAgent == "" {
		return false
	}
	ua := strings.ToLower(userAgent)
	for _, m := range botMarkers {
		if strings.Contains(ua, m) {
			return true
		}
	}
	return false
}
