package fingerprint

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"
)

// DeviceInfo is the device snapshot attached to remote calls.
type DeviceInfo struct {
	OS                  string   `json:"OS"`
	Browser             string   `json:"Browser"`
	ScreenResolution    string   `json:"ScreenResolution"`
	TimeZone            string   `json:"TimeZone"`
	Language            string   `json:"Language"`
	HardwareConcurrency int      `json:"HardwareConcurrency"`
	DeviceMemory        float64  `json:"DeviceMemory"`
	MaxTouchPoints      int      `json:"MaxTouchPoints"`
	ColorDepth          int      `json:"ColorDepth"`
	PixelRatio          float64  `json:"PixelRatio"`
	IsSafari            bool     `json:"IsSafari"`
	TouchSupport        bool     `json:"TouchSupport"`
	AvailScreen         string   `json:"AvailScreen"`
	Fonts               []string `json:"Fonts"`
	AppVersion          string   `json:"AppVersion"`
}

const unknown = "unknown"

// Info builds the snapshot, substituting placeholders for missing traits.
func (p Profile) Info(appVersion string) DeviceInfo {
	colorDepth := p.ColorDepth
	if colorDepth == 0 {
		colorDepth = 24
	}
	pixelRatio := p.PixelRatio
	if pixelRatio == 0 {
		pixelRatio = 1
	}
	if appVersion == "" {
		appVersion = unknown
	}
	fonts := p.Fonts
	if fonts == nil {
		fonts = []string{}
	}
	return DeviceInfo{
		OS:                  orUnknown(p.Platform),
		Browser:             orUnknown(p.UserAgent),
		ScreenResolution:    fmt.Sprintf("%dx%d", p.ScreenWidth, p.ScreenHeight),
		TimeZone:            orUnknown(p.TimeZone),
		Language:            orUnknown(p.Language),
		HardwareConcurrency: p.HardwareConcurrency,
		DeviceMemory:        p.DeviceMemory,
		MaxTouchPoints:      p.MaxTouchPoints,
		ColorDepth:          colorDepth,
		PixelRatio:          pixelRatio,
		IsSafari:            p.PrivacyConstrained(),
		TouchSupport:        p.MaxTouchPoints > 0,
		AvailScreen:         fmt.Sprintf("%dx%d", p.AvailWidth, p.AvailHeight),
		Fonts:               fonts,
		AppVersion:          appVersion,
	}
}

// JSON renders the snapshot the way the backend stores it.
func (d DeviceInfo) JSON() (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode device info: %w", err)
	}
	return string(b), nil
}

// HostProfile describes the machine the CLI runs on. Screen and GPU traits
// are unknown outside a browser and stay zero.
func HostProfile() Profile {
	lang := os.Getenv("LANG")
	if i := strings.IndexAny(lang, ".@"); i >= 0 {
		lang = lang[:i]
	}
	return Profile{
		Platform:            runtime.GOOS + "/" + runtime.GOARCH,
		UserAgent:           "attendance-cli (" + runtime.GOOS + "; " + runtime.GOARCH + ")",
		Language:            strings.ReplaceAll(lang, "_", "-"),
		TimeZone:            time.Local.String(),
		HardwareConcurrency: runtime.NumCPU(),
	}
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
