package yandex

const platformName = "yandex"

const (
	defaultStreamKey           = "kzqU4XhfCaY6B6JTHODeq5"
	defaultDeprecatedStreamKey = "XGRlBW9FXlekgbPrRHuSiA"
)

const (
	defaultAPIOrigin          = "https://api.music.yandex.net/"
	defaultProxyAPIOrigin     = "https://music.mts.ru/ya_api/"
	defaultWebOrigin          = "https://music.yandex.ru/"
	defaultStorageOrigin      = "https://storage.mds.yandex.net/"
	defaultProxyStorageOrigin = "https://music.mts.ru/ya_download/"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) YandexMusic/5.18.2 Chrome/122.0.6261.156 Electron/29.4.6 Safari/537.36"
	headerOrigin     = "music-application://desktop"
	headerClient     = "YandexMusicDesktopAppWindows/5.18.2"

	headerRequestID = "X-Request-Id"
	headerCaptcha   = "X-Yandex-Captcha"
)

// Stream request parameters sent by the desktop client.
const (
	streamTransportRaw = "raw"
	codecMP3           = "mp3"
	codecAAC           = "aac"
	codecFLAC          = "flac"
)

var streamCodecs = []string{codecMP3, codecAAC, codecFLAC}

const (
	metaTypeMusic = "music"

	disclaimerExplicit = "explicit"
	disclaimerModal    = "modal"
	reasonLegal        = "legal"
	coverTypeMosaic    = "mosaic"

	unknownCountry = "XX"
)

var hostnames = []string{"music.yandex.ru", "music.yandex.com"}

var coverSizes = []struct {
	token         string
	width, height int
}{
	{"50x50", 50, 50},
	{"100x100", 100, 100},
	{"200x200", 200, 200},
	{"400x400", 400, 400},
	{"1000x1000", 1000, 1000},
}

// regions maps upstream region ids to ISO country codes.
var regions = map[int]string{
	225: "RU",
	187: "UA",
	149: "BY",
	159: "KZ",
}
