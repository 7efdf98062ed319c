package device

import (
	"regexp"
	"strings"
)

const unknown = "unknown"

// DeviceType classifies the physical form factor.
type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DeviceDesktop DeviceType = "desktop"
	DeviceUnknown DeviceType = "unknown"
)

// AppType classifies which client shell is talking to the API.
type AppType string

const (
	AppWeb      AppType = "web"
	AppIOS      AppType = "ios_app"
	AppAndroid  AppType = "android_app"
	AppElectron AppType = "electron_app"
)

// Info is the coarse device fingerprint stored with each session.
type Info struct {
	DeviceType     DeviceType `json:"device_type"`
	AppType        AppType    `json:"app_type"`
	Browser        string     `json:"browser"`
	BrowserVersion string     `json:"browser_version"`
	OS             string     `json:"os"`
}

// appSignature is the product token embedded in the user agent by the
// tillgate desktop and mobile shells.
const appSignature = "tillgate"

// browserRules are matched in order. Chrome user agents contain "Safari" and
// Edge user agents contain both "Chrome" and "Safari", so specific tokens
// must run before generic ones.
var browserRules = []struct {
	name    string
	token   string
	version *regexp.Regexp
}{
	{"Edge", "edg", regexp.MustCompile(`(?i)edg(?:e|a|ios)?/([\d.]+)`)},
	{"Opera", "opr", regexp.MustCompile(`(?i)opr/([\d.]+)`)},
	{"Opera", "opera", regexp.MustCompile(`(?i)opera[/ ]([\d.]+)`)},
	{"Chrome", "chrome", regexp.MustCompile(`(?i)chrome/([\d.]+)`)},
	{"Chrome", "crios", regexp.MustCompile(`(?i)crios/([\d.]+)`)},
	{"Firefox", "firefox", regexp.MustCompile(`(?i)firefox/([\d.]+)`)},
	{"Firefox", "fxios", regexp.MustCompile(`(?i)fxios/([\d.]+)`)},
	{"Safari", "safari", regexp.MustCompile(`(?i)version/([\d.]+)`)},
	{"Internet Explorer", "msie", regexp.MustCompile(`(?i)msie ([\d.]+)`)},
	{"Internet Explorer", "trident", regexp.MustCompile(`(?i)rv:([\d.]+)`)},
}

// osRules are a separate ordered pass; iPad/iPhone before generic Mac, since
// iPadOS user agents can carry "like Mac OS X".
var osRules = []struct {
	name  string
	token string
}{
	{"iOS", "iphone"},
	{"iOS", "ipad"},
	{"iOS", "ipod"},
	{"Android", "android"},
	{"Windows", "windows"},
	{"macOS", "mac os x"},
	{"macOS", "macintosh"},
	{"Chrome OS", "cros"},
	{"Linux", "linux"},
}

// Parse derives a device fingerprint from the raw user agent and an optional
// explicit platform hint sent by native clients ("ios", "android",
// "electron", "web"). It never fails; anything unrecognized stays "unknown".
func Parse(userAgent, platformHint string) Info {
	info := Info{
		DeviceType: DeviceUnknown,
		AppType:    AppWeb,
		Browser:    unknown,
		OS:         unknown,
	}
	ua := strings.ToLower(userAgent)

	info.OS = matchOS(ua)
	info.Browser, info.BrowserVersion = matchBrowser(ua, userAgent)

	switch strings.ToLower(strings.TrimSpace(platformHint)) {
	case "ios":
		// Native POS clients run on tablets unless the UA narrows it.
		info.AppType = AppIOS
		info.DeviceType = DeviceTablet
		if strings.Contains(ua, "iphone") || strings.Contains(ua, "ipod") {
			info.DeviceType = DeviceMobile
		}
		info.Browser = string(AppIOS)
		return info
	case "android":
		info.AppType = AppAndroid
		info.DeviceType = DeviceTablet
		if strings.Contains(ua, "mobile") {
			info.DeviceType = DeviceMobile
		}
		info.Browser = string(AppAndroid)
		return info
	case "electron":
		info.AppType = AppElectron
		info.DeviceType = DeviceDesktop
		info.Browser = string(AppElectron)
		return info
	case "web":
		info.AppType = AppWeb
	}

	if strings.Contains(ua, appSignature) {
		switch {
		case strings.Contains(ua, "electron"):
			info.AppType = AppElectron
			info.DeviceType = DeviceDesktop
			return info
		case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipod"):
			info.AppType = AppIOS
			info.DeviceType = DeviceMobile
			return info
		case strings.Contains(ua, "ipad"):
			info.AppType = AppIOS
			info.DeviceType = DeviceTablet
			return info
		case strings.Contains(ua, "android"):
			info.AppType = AppAndroid
			info.DeviceType = DeviceTablet
			if strings.Contains(ua, "mobile") {
				info.DeviceType = DeviceMobile
			}
			return info
		}
	}

	info.DeviceType = matchDeviceType(ua)
	return info
}

func matchDeviceType(ua string) DeviceType {
	switch {
	case ua == "":
		return DeviceUnknown
	case strings.Contains(ua, "ipad"),
		strings.Contains(ua, "tablet"),
		strings.Contains(ua, "android") && !strings.Contains(ua, "mobile"):
		return DeviceTablet
	case strings.Contains(ua, "mobi"),
		strings.Contains(ua, "iphone"),
		strings.Contains(ua, "ipod"),
		strings.Contains(ua, "android"):
		return DeviceMobile
	default:
		return DeviceDesktop
	}
}

func matchBrowser(ua, original string) (name, version string) {
	for _, rule := range browserRules {
		if !strings.Contains(ua, rule.token) {
			continue
		}
		if m := rule.version.FindStringSubmatch(original); len(m) == 2 {
			version = m[1]
		}
		return rule.name, version
	}
	return unknown, ""
}

func matchOS(ua string) string {
	for _, rule := range osRules {
		if strings.Contains(ua, rule.token) {
			return rule.name
		}
	}
	return unknown
}
