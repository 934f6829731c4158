package avatar

import (
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	positiveWords = []string{"profile", "avatar", "photo", "me", "headshot", "face", "portrait"}
	negativeWords = []string{"logo", "icon", "banner", "footer", "header", "sprite", "shim", "blank"}
	imageExts     = []string{".jpg", ".jpeg", ".png", ".webp"}
)

type scored struct {
	url   string
	score int
}

// CandidatesFromHTML scores every <img> (plus og:image) on the page for
// profile-photo likelihood and returns the top five absolute URLs.
func CandidatesFromHTML(rawHTML, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		base = &url.URL{}
	}

	seen := map[string]bool{}
	var cands []scored

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			return
		}
		full := absoluteURL(base, src)
		if full == "" || seen[full] {
			return
		}
		if !looksLikeImage(full) {
			return
		}

		score := 0
		alt := strings.ToLower(img.AttrOr("alt", ""))
		srcLower := strings.ToLower(src)
		class := strings.ToLower(img.AttrOr("class", ""))

		for _, kw := range positiveWords {
			if strings.Contains(alt, kw) {
				score += 10
			}
			if strings.Contains(srcLower, kw) {
				score += 5
			}
			if strings.Contains(class, kw) {
				score += 5
			}
		}
		for _, kw := range negativeWords {
			if strings.Contains(srcLower, kw) || strings.Contains(alt, kw) || strings.Contains(class, kw) {
				score -= 50
				break
			}
		}

		seen[full] = true
		cands = append(cands, scored{url: full, score: score})
	})

	// og:image usually is the page owner's portrait on personal sites
	if og, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok && og != "" {
		full := absoluteURL(base, og)
		if full != "" && !seen[full] {
			cands = append(cands, scored{url: full, score: 20})
		}
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })

	out := []string{}
	for _, c := range cands {
		if c.score <= -10 {
			continue
		}
		out = append(out, c.url)
		if len(out) == 5 {
			break
		}
	}
	return out
}

func absoluteURL(base *url.URL, ref string) string {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(u)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

func looksLikeImage(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, ext := range imageExts {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	// allow query-param variants when the raw url still ends in an extension
	lower := strings.ToLower(rawURL)
	for _, ext := range imageExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
