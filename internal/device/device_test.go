package device

import "testing"

const (
	chromeDesktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	safariMacUA     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15"
	edgeUA          = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.2210.91"
	firefoxLinuxUA  = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	iphoneSafariUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
	ipadSafariUA    = "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1"
	androidPhoneUA  = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	androidTabUA    = "Mozilla/5.0 (Linux; Android 13; SM-X710) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"
	electronPosUA   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Tillgate/3.2.0 Chrome/118.0.0.0 Electron/27.1.0 Safari/537.36"
	iosPosUA        = "Tillgate/3.2.0 (iPad; CPU OS 16_6 like Mac OS X)"
	androidPosUA    = "Tillgate/3.2.0 (Linux; Android 13; POS-T2) Mobile"
)

func TestParseBrowsers(t *testing.T) {
	cases := []struct {
		name       string
		ua         string
		browser    string
		version    string
		os         string
		deviceType DeviceType
	}{
		{"chrome windows", chromeDesktopUA, "Chrome", "120.0.0.0", "Windows", DeviceDesktop},
		{"safari mac after chrome check", safariMacUA, "Safari", "17.1", "macOS", DeviceDesktop},
		{"edge before chrome", edgeUA, "Edge", "120.0.2210.91", "Windows", DeviceDesktop},
		{"firefox linux", firefoxLinuxUA, "Firefox", "121.0", "Linux", DeviceDesktop},
		{"iphone safari", iphoneSafariUA, "Safari", "17.1", "iOS", DeviceMobile},
		{"ipad safari", ipadSafariUA, "Safari", "16.6", "iOS", DeviceTablet},
		{"android phone chrome", androidPhoneUA, "Chrome", "120.0.0.0", "Android", DeviceMobile},
		{"android tablet chrome", androidTabUA, "Chrome", "119.0.0.0", "Android", DeviceTablet},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info := Parse(tc.ua, "")
			if info.Browser != tc.browser {
				t.Fatalf("browser = %q, want %q", info.Browser, tc.browser)
			}
			if info.BrowserVersion != tc.version {
				t.Fatalf("browser version = %q, want %q", info.BrowserVersion, tc.version)
			}
			if info.OS != tc.os {
				t.Fatalf("os = %q, want %q", info.OS, tc.os)
			}
			if info.DeviceType != tc.deviceType {
				t.Fatalf("device type = %q, want %q", info.DeviceType, tc.deviceType)
			}
			if info.AppType != AppWeb {
				t.Fatalf("app type = %q, want web", info.AppType)
			}
		})
	}
}

func TestParseAppSignature(t *testing.T) {
	info := Parse(electronPosUA, "")
	if info.AppType != AppElectron {
		t.Fatalf("app type = %q, want electron_app", info.AppType)
	}
	if info.DeviceType != DeviceDesktop {
		t.Fatalf("device type = %q, want desktop", info.DeviceType)
	}

	info = Parse(iosPosUA, "")
	if info.AppType != AppIOS || info.DeviceType != DeviceTablet {
		t.Fatalf("ipad app: got %q/%q", info.AppType, info.DeviceType)
	}

	info = Parse(androidPosUA, "")
	if info.AppType != AppAndroid || info.DeviceType != DeviceMobile {
		t.Fatalf("android app: got %q/%q", info.AppType, info.DeviceType)
	}
}

func TestParsePlatformHintOverrides(t *testing.T) {
	// Hint wins even against a desktop browser user agent.
	info := Parse(chromeDesktopUA, "electron")
	if info.AppType != AppElectron || info.DeviceType != DeviceDesktop {
		t.Fatalf("electron hint: got %q/%q", info.AppType, info.DeviceType)
	}

	// Bare iOS hint defaults to tablet hardware.
	info = Parse("", "ios")
	if info.AppType != AppIOS {
		t.Fatalf("ios hint app type = %q", info.AppType)
	}
	if info.DeviceType != DeviceTablet {
		t.Fatalf("ios hint device type = %q, want tablet", info.DeviceType)
	}

	// A phone user agent narrows the assumption.
	info = Parse(iphoneSafariUA, "ios")
	if info.DeviceType != DeviceMobile {
		t.Fatalf("ios hint with iphone ua = %q, want mobile", info.DeviceType)
	}

	info = Parse(androidPhoneUA, "android")
	if info.AppType != AppAndroid || info.DeviceType != DeviceMobile {
		t.Fatalf("android hint: got %q/%q", info.AppType, info.DeviceType)
	}

	info = Parse(chromeDesktopUA, "web")
	if info.AppType != AppWeb {
		t.Fatalf("web hint app type = %q", info.AppType)
	}
}

func TestParseNeverFails(t *testing.T) {
	for _, ua := range []string{"", "curl/8.4.0", "completely made up agent", "ﬀ\x00\xff"} {
		info := Parse(ua, "")
		if info.Browser == "" || info.OS == "" {
			t.Fatalf("Parse(%q) returned empty fields: %+v", ua, info)
		}
	}
	info := Parse("", "")
	if info.DeviceType != DeviceUnknown || info.Browser != "unknown" || info.OS != "unknown" {
		t.Fatalf("empty input should be unknown: %+v", info)
	}
}
