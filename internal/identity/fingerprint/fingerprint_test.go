package fingerprint

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

const (
	chromeUA  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	safariUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	criosUA   = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) CriOS/120.0.6099.119 Mobile/15E148 Safari/604.1"
	firefoxUA = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
)

// FingerprintSuite covers identifier stability: any drift in feature order or
// content re-keys every device and forces a re-binding prompt.
type FingerprintSuite struct {
	suite.Suite
}

func TestFingerprintSuite(t *testing.T) {
	suite.Run(t, new(FingerprintSuite))
}

func desktop() Profile {
	return Profile{
		Platform:            "MacIntel",
		UserAgent:           chromeUA,
		Language:            "zh-TW",
		ScreenWidth:         1920,
		ScreenHeight:        1080,
		ColorDepth:          24,
		PixelRatio:          2,
		HardwareConcurrency: 8,
		GPUVendor:           "Apple",
		GPURenderer:         "Apple M1",
	}
}

func (s *FingerprintSuite) TestSafariDetection() {
	s.True(IsSafari(safariUA))
	s.False(IsSafari(chromeUA))
	s.False(IsSafari(criosUA))
	s.False(IsSafari(firefoxUA))
	s.False(IsSafari(""))
}

func (s *FingerprintSuite) TestFeatures() {
	s.Run("full trait list outside privacy-constrained browsers", func() {
		f := desktop().Features("203.0.113.7")
		s.Equal([]string{"MacIntel", "1920x1080", "zh-TW", "24", chromeUA[:100], "8", "2", "Apple-Apple M1", "203.0.113.7"}, f)
	})

	s.Run("hardware traits dropped on safari", func() {
		p := desktop()
		p.UserAgent = safariUA
		f := p.Features("203.0.113.7")
		s.Len(f, 6)
		s.Equal("203.0.113.7", f[5])
	})

	s.Run("user agent cut on a character boundary", func() {
		p := desktop()
		p.UserAgent = strings.Repeat("a", 99) + "測試"
		s.Equal(strings.Repeat("a", 99)+"測", p.Features("")[4])

		p.UserAgent = strings.Repeat("a", 99) + "😀"
		s.Equal(strings.Repeat("a", 99), p.Features("")[4], "a surrogate pair is not split")
	})

	s.Run("missing ip hashes as unknown", func() {
		f := desktop().Features("")
		s.Equal("unknown", f[len(f)-1])
	})

	s.Run("missing gpu info", func() {
		p := desktop()
		p.GPUVendor, p.GPURenderer = "", ""
		s.Equal("WebGL not supported", p.GPUSignature())
	})
}

func (s *FingerprintSuite) TestComputeIsDeterministic() {
	a, okA := Compute(desktop(), "203.0.113.7", nil)
	b, okB := Compute(desktop(), "203.0.113.7", nil)
	s.True(okA)
	s.True(okB)
	s.Equal(a, b)
	s.Len(a, 64)

	other, _ := Compute(desktop(), "198.51.100.1", nil)
	s.NotEqual(a, other)
}

func (s *FingerprintSuite) TestComputeFallsBackToRandom() {
	failing := func([]byte) (string, error) { return "", errors.New("no digest") }

	a, ok := Compute(desktop(), "ip", failing)
	s.False(ok)
	b, _ := Compute(desktop(), "ip", failing)
	s.NotEqual(a, b)
	s.Len(a, 36)
}

func (s *FingerprintSuite) TestDisplayName() {
	s.Equal("Unknown Device", Profile{}.DisplayName())
	p := desktop()
	name := p.DisplayName()
	s.Contains(name, "Chrome")
	s.Contains(name, " on ")
}

func (s *FingerprintSuite) TestInfoDefaults() {
	info := Profile{}.Info("")
	s.Equal("unknown", info.OS)
	s.Equal("unknown", info.AppVersion)
	s.Equal(24, info.ColorDepth)
	s.Equal(1.0, info.PixelRatio)
	s.False(info.TouchSupport)
	s.NotNil(info.Fonts)

	js, err := desktop().Info("19.9.8").JSON()
	s.Require().NoError(err)
	s.True(strings.HasPrefix(js, `{"OS":"MacIntel"`))
	s.Contains(js, `"AppVersion":"19.9.8"`)
}

func (s *FingerprintSuite) TestIPLookup() {
	s.Run("decodes the address", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"ip":"203.0.113.7"}`))
		}))
		defer srv.Close()

		s.Equal("203.0.113.7", IPLookup{URL: srv.URL}.LookupIP(context.Background()))
	})

	s.Run("failure reads as unknown", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		s.Equal("unknown", IPLookup{URL: srv.URL}.LookupIP(context.Background()))
	})

	s.Run("slow endpoint times out", func() {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		s.Equal("unknown", IPLookup{URL: srv.URL, Timeout: 20 * time.Millisecond}.LookupIP(context.Background()))
	})

	s.Run("static source", func() {
		s.Equal("unknown", StaticIP("").LookupIP(context.Background()))
		s.Equal("1.2.3.4", StaticIP("1.2.3.4").LookupIP(context.Background()))
	})
}
