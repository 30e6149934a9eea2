package group

// iconTable maps a group key (country code, service tag, or meta-group
// name) to the icon URL the Emitter embeds in generated client configs.
// Entries not present fall back to DefaultIcon.
var iconTable = map[string]string{
	"HK":      "https://fastly.jsdelivr.net/gh/Koolson/Qure@master/IconSet/Color/HongKong.png",
	"TW":      "https://fastly.jsdelivr.net/gh/Koolson/Qure@master/IconSet/Color/Taiwan.png",
	"JP":      "https://fastly.jsdelivr.net/gh/Koolson/Qure@master/IconSet/Color/Japan.png",
	"US":      "https://fastly.jsdelivr.net/gh/Koolson/Qure@master/IconSet/Color/UnitedStates.png",
	"SG":      "https://fastly.jsdelivr.net/gh/Koolson/Qure@master/IconSet/Color/Singapore.png",
	"Others":  "https://fastly.jsdelivr.net/gh/Koolson/Qure@master/IconSet/Color/World_Map.png",
	"Netflix": "https://fastly.jsdelivr.net/gh/Koolson/Qure@master/IconSet/Color/Netflix.png",
	"OpenAI":  "https://fastly.jsdelivr.net/gh/Koolson/Qure@master/IconSet/Color/ChatGPT.png",
	"Disney+": "https://fastly.jsdelivr.net/gh/Koolson/Qure@master/IconSet/Color/Disney+.png",
	"YouTube": "https://fastly.jsdelivr.net/gh/Koolson/Qure@master/IconSet/Color/YouTube.png",
	"HBO":     "https://fastly.jsdelivr.net/gh/Koolson/Qure@master/IconSet/Color/HBO_Max.png",
	"Spotify": "https://fastly.jsdelivr.net/gh/Koolson/Qure@master/IconSet/Color/Spotify.png",
	"TikTok":  "https://fastly.jsdelivr.net/gh/Koolson/Qure@master/IconSet/Color/TikTok.png",
}

// DefaultIcon is used for any group key not found in iconTable.
const DefaultIcon = "https://fastly.jsdelivr.net/gh/Koolson/Qure@master/IconSet/Color/Proxy.png"

// IconFor returns the icon URL for a group key, falling back to
// DefaultIcon when the key carries no dedicated icon.
func IconFor(key string) string {
	if icon, ok := iconTable[key]; ok {
		return icon
	}
	return DefaultIcon
}
