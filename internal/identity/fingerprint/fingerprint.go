// Package fingerprint derives a stable device identifier from device and
// browser characteristics.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
)

const (
	userAgentPrefix = 100
	unknownIP       = "unknown"
)

// Profile is what the client reports about the device it runs on.
type Profile struct {
	Platform            string   `json:"platform"`
	UserAgent           string   `json:"userAgent"`
	Language            string   `json:"language"`
	TimeZone            string   `json:"timeZone"`
	ScreenWidth         int      `json:"screenWidth"`
	ScreenHeight        int      `json:"screenHeight"`
	AvailWidth          int      `json:"availWidth"`
	AvailHeight         int      `json:"availHeight"`
	ColorDepth          int      `json:"colorDepth"`
	PixelRatio          float64  `json:"pixelRatio"`
	HardwareConcurrency int      `json:"hardwareConcurrency"`
	DeviceMemory        float64  `json:"deviceMemory"`
	MaxTouchPoints      int      `json:"maxTouchPoints"`
	GPUVendor           string   `json:"gpuVendor"`
	GPURenderer         string   `json:"gpuRenderer"`
	Fonts               []string `json:"fonts"`
}

// PrivacyConstrained reports whether the browser masks hardware traits.
// Safari does; Chrome, Edge and Firefox on iOS announce Safari but do not.
func (p Profile) PrivacyConstrained() bool {
	return IsSafari(p.UserAgent)
}

// IsSafari reports whether ua is genuine Safari.
func IsSafari(ua string) bool {
	if ua == "" {
		return false
	}
	lower := strings.ToLower(ua)
	for _, marker := range []string{"crios", "fxios", "edgios", "chrome", "firefox"} {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	name, _ := useragent.New(ua).Browser()
	return name == "Safari"
}

// DisplayName renders the profile as "Browser on OS" for bind prompts.
func (p Profile) DisplayName() string {
	if p.UserAgent == "" {
		return "Unknown Device"
	}
	ua := useragent.New(p.UserAgent)
	browser, _ := ua.Browser()
	osName := ua.OS()
	if browser == "" {
		browser = "Unknown Browser"
	}
	if osName == "" {
		osName = p.Platform
	}
	return strings.TrimSpace(fmt.Sprintf("%s on %s", browser, osName))
}

// GPUSignature renders the vendor-renderer pair.
func (p Profile) GPUSignature() string {
	if p.GPUVendor == "" && p.GPURenderer == "" {
		return "WebGL not supported"
	}
	vendor, renderer := p.GPUVendor, p.GPURenderer
	if vendor == "" {
		vendor = "unknown_vendor"
	}
	if renderer == "" {
		renderer = "unknown_renderer"
	}
	return vendor + "-" + renderer
}

// Features lists the stable characteristics in hashing order. Hardware
// traits are left out for privacy-constrained browsers, which randomize them.
func (p Profile) Features(ip string) []string {
	ua := truncateUTF16(p.UserAgent, userAgentPrefix)
	features := []string{
		p.Platform,
		fmt.Sprintf("%dx%d", p.ScreenWidth, p.ScreenHeight),
		p.Language,
		strconv.Itoa(p.ColorDepth),
		ua,
	}
	if !p.PrivacyConstrained() {
		features = append(features,
			strconv.Itoa(p.HardwareConcurrency),
			strconv.FormatFloat(p.PixelRatio, 'f', -1, 64),
			p.GPUSignature(),
		)
	}
	if ip == "" {
		ip = unknownIP
	}
	return append(features, ip)
}

// truncateUTF16 keeps the longest prefix of s that fits in n UTF-16 code
// units, cutting only on rune boundaries.
func truncateUTF16(s string, n int) string {
	units := 0
	for i, r := range s {
		size := utf16.RuneLen(r)
		if size < 0 {
			size = 1
		}
		if units+size > n {
			return s[:i]
		}
		units += size
	}
	return s
}

// Hasher digests the joined feature string.
type Hasher func(data []byte) (string, error)

// SHA256Hex is the default Hasher.
func SHA256Hex(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Compute hashes the profile features. When hashing fails it falls back to a
// random UUID, which carries equivalent entropy but is not reproducible.
func Compute(p Profile, ip string, hash Hasher) (id string, fromFingerprint bool) {
	if hash == nil {
		hash = SHA256Hex
	}
	digest, err := hash([]byte(strings.Join(p.Features(ip), "|")))
	if err != nil || digest == "" {
		return uuid.NewString(), false
	}
	return digest, true
}
