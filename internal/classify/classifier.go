// Package classify assigns URL categories with keyword heuristics. It is the
// in-process fallback behind the category blocking rules; no external model
// is involved.
package classify

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

// Uncategorized is returned when nothing scores.
const Uncategorized = "Uncategorized"

// Categories every deployment knows about, in display order.
var Categories = []string{
	"Advertising",
	"AI Chatbots & Tools",
	"App Stores & System Updates",
	"Blogs",
	"Built-in Apps",
	"Collaboration",
	"Drugs & Alcohol",
	"Ecommerce",
	"Entertainment",
	"Gambling",
	"Games",
	"General / Education",
	"Health & Medicine",
	"Illegal, Malicious, or Hacking",
	"Religion",
	"Sexual Content",
	"Social Media",
	"Sports & Hobbies",
	"Streaming Services",
	"Weapons",
	Uncategorized,
}

// keywords per category. Expandable; matching is a plain substring count.
var keywords = map[string][]string{
	"AI Chatbots & Tools": {"chatgpt", "openai", "bard", "claude", "copilot", "perplexity.ai", "writesonic", "midjourney"},
	"Social Media":        {"tiktok", "instagram", "snapchat", "facebook", "x.com", "twitter", "reddit", "discord", "tumblr", "be.real"},
	"Games":               {"roblox", "fortnite", "minecraft", "epicgames", "leagueoflegends", "steam", "twitch", "itch.io", "riot games"},
	"Ecommerce":           {"amazon", "ebay", "walmart", "bestbuy", "aliexpress", "etsy", "shopify", "mercado libre", "target.com"},
	"Streaming Services":  {"netflix", "spotify", "hulu", "vimeo", "twitch", "soundcloud", "peacocktv", "max.com", "disneyplus"},
	"Sexual Content":      {"porn", "xxx", "xvideos", "redtube", "xnxx", "brazzers", "onlyfans", "camgirl", "pornhub"},
	"Gambling":            {"casino", "sportsbook", "bet", "poker", "slot", "roulette", "draftkings", "fanduel"},
	"Illegal, Malicious, or Hacking": {"warez", "piratebay", "crack download", "keygen", "free movies streaming", "sql injection", "ddos", "cheat engine"},
	"Drugs & Alcohol":                {"buy weed", "vape", "nicotine", "delta-8", "kratom", "bong", "vodka", "whiskey", "winery", "brewery"},
	"Collaboration":                  {"gmail", "outlook", "office 365", "onedrive", "teams", "slack", "zoom", "google docs", "google drive", "meet.google"},
	"General / Education":            {"wikipedia", "news", "encyclopedia", "khan academy", "nasa.gov", ".edu"},
	"Sports & Hobbies":               {"espn", "nba", "nfl", "mlb", "nhl", "cars", "boats", "aircraft"},
	"App Stores & System Updates":    {"play.google", "apps.apple", "microsoft store", "firmware update", "drivers download"},
	"Advertising":                    {"ads.txt", "adserver", "doubleclick", "adchoices", "advertising"},
	"Blogs":                          {"wordpress", "blogger", "wattpad", "joomla", "drupal", "medium"},
	"Health & Medicine":              {"patient portal", "glucose", "fitbit", "apple health", "pharmacy", "telehealth"},
	"Religion":                       {"church", "synagogue", "mosque", "bible study", "quran", "sermon"},
	"Weapons":                        {"knife", "guns", "rifle", "ammo", "silencer", "tactical"},
	"Entertainment":                  {"tv shows", "movies", "anime", "cartoons", "jokes", "memes"},
	"Built-in Apps":                  {"calculator", "camera", "clock", "files app"},
}

// Result is one classification verdict.
type Result struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Domain     string  `json:"domain"`
	Host       string  `json:"host"`
}

var (
	scriptRe = regexp.MustCompile(`(?is)<script[\s\S]*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style[\s\S]*?</style>`)
	tagRe    = regexp.MustCompile(`<[^>]+>`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// textify strips markup from page HTML for keyword scanning.
func textify(raw string) string {
	if raw == "" {
		return ""
	}
	txt := scriptRe.ReplaceAllString(raw, " ")
	txt = styleRe.ReplaceAllString(txt, " ")
	txt = tagRe.ReplaceAllString(txt, " ")
	txt = html.UnescapeString(txt)
	return strings.ToLower(strings.TrimSpace(spaceRe.ReplaceAllString(txt, " ")))
}

// splitHost returns the full host and a registrable-ish domain (last two
// labels). Good enough for keyword scoring; this is a heuristic, not a
// public-suffix lookup.
func splitHost(rawURL string) (host, domain string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ""
	}
	host = strings.ToLower(u.Hostname())
	labels := strings.Split(host, ".")
	if len(labels) >= 2 {
		domain = strings.Join(labels[len(labels)-2:], ".")
	} else {
		domain = host
	}
	return host, domain
}

// Classify scores a URL (and optional page HTML) against every category's
// keywords and returns the best match with a normalized confidence.
func Classify(rawURL, pageHTML string) Result {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}
	host, domain := splitHost(rawURL)

	tokens := []string{strings.ToLower(rawURL), host, domain}
	if body := textify(pageHTML); body != "" {
		tokens = append(tokens, body)
	}

	scores := map[string]int{}
	for cat, kws := range keywords {
		for _, kw := range kws {
			for _, t := range tokens {
				scores[cat] += strings.Count(t, kw)
			}
		}
	}
	if strings.Contains(domain, "edu") {
		scores["General / Education"] += 3
	}
	if strings.Contains(rawURL, "wp-login") || strings.Contains(rawURL, "/wp-content/") {
		scores["Blogs"]++
	}

	best, bestScore, total := Uncategorized, 0, 0
	for _, cat := range Categories {
		sc := scores[cat]
		total += sc
		if sc > bestScore {
			best, bestScore = cat, sc
		}
	}
	if total == 0 {
		return Result{Category: Uncategorized, Confidence: 0, Domain: domain, Host: host}
	}
	return Result{
		Category:   best,
		Confidence: float64(bestScore) / float64(total),
		Domain:     domain,
		Host:       host,
	}
}
