package extract

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/moviegraph/crawler/internal/catalog"
)

// DefaultGenres is the canonical genre allow-list; unrecognized genre tokens
// from the source are dropped silently.
var DefaultGenres = []string{
	"剧情", "喜剧", "动作", "爱情", "科幻", "动画", "悬疑", "惊悚", "恐怖",
	"犯罪", "同性", "音乐", "歌舞", "传记", "历史", "战争", "西部", "奇幻",
	"冒险", "灾难", "武侠", "情色",
}

// infoHandler extracts one field from the label node that carries its
// caption. Each handler tolerates an absent or malformed sibling by writing
// a zero value.
type infoHandler func(label *goquery.Selection, d *catalog.MovieDetail)

// PrimaryBlocked reports the soft-ban signal on an otherwise-200 detail
// page: the title node inside the comments section is empty when the source
// serves its block interstitial.
func PrimaryBlocked(doc *goquery.Document) bool {
	return strings.TrimSpace(doc.Find("#comments-section .mod-hd h2 i").Text()) == ""
}

// PrimaryDetail extracts the primary-source detail record. Field handlers
// are keyed by the source-native captions of the info block.
func PrimaryDetail(doc *goquery.Document, genres []string) catalog.MovieDetail {
	if genres == nil {
		genres = DefaultGenres
	}
	allowed := make(map[string]bool, len(genres))
	for _, g := range genres {
		allowed[g] = true
	}

	var d catalog.MovieDetail
	d.Title, d.OriginalTitle = primaryTitles(doc)
	d.PublishYear = strings.Trim(doc.Find("#content > h1 > .year").Text(), "()")
	d.CoverURL, _ = doc.Find("#mainpic .nbgnbg img").Attr("src")
	d.PrimaryRating, _ = strconv.ParseFloat(strings.TrimSpace(doc.Find("#interest_sectl .rating_num").Text()), 64)
	d.PrimaryRatingCount = firstNumber(doc.Find("#interest_sectl span[property='v:votes']").Text())
	d.SummaryPrimary = primarySummary(doc)

	handlers := map[string]infoHandler{
		"导演": func(label *goquery.Selection, d *catalog.MovieDetail) {
			d.Directors = SplitNames(label.NextAllFiltered(".attrs").First().Text())
		},
		"编剧": func(label *goquery.Selection, d *catalog.MovieDetail) {
			d.Writers = SplitNames(label.NextAllFiltered(".attrs").First().Text())
		},
		"主演": func(label *goquery.Selection, d *catalog.MovieDetail) {
			d.Actors = SplitNames(label.NextAllFiltered(".attrs").First().Text())
		},
		"类型": func(label *goquery.Selection, d *catalog.MovieDetail) {
			label.NextAllFiltered("span[property='v:genre']").Each(func(_ int, s *goquery.Selection) {
				if g := strings.TrimSpace(s.Text()); allowed[g] {
					d.Genres = append(d.Genres, g)
				}
			})
		},
		"制片国家/地区": func(label *goquery.Selection, d *catalog.MovieDetail) {
			d.Regions = SplitSlashList(labelSiblingText(label))
		},
		"上映日期": func(label *goquery.Selection, d *catalog.MovieDetail) {
			content, _ := label.NextFiltered("span[property='v:initialReleaseDate']").Attr("content")
			if len(content) > 10 {
				content = content[:10]
			}
			d.ReleaseDate = NormalizeDate(content)
		},
		"片长": func(label *goquery.Selection, d *catalog.MovieDetail) {
			runtime, ok := label.NextFiltered("span[property='v:runtime']").Attr("content")
			if !ok {
				runtime = labelSiblingText(label)
			}
			d.Duration = DurationMinutes(runtime)
		},
		"又名": func(label *goquery.Selection, d *catalog.MovieDetail) {
			var aliases []string
			for _, a := range strings.Split(labelSiblingText(label), "/") {
				if a = strings.TrimSpace(a); a != "" {
					aliases = append(aliases, a)
				}
			}
			d.Alias = strings.Join(aliases, ",")
		},
		"语言": func(label *goquery.Selection, d *catalog.MovieDetail) {
			d.Language = strings.Join(SplitSlashList(labelSiblingText(label)), ",")
		},
		"IMDb链接": func(label *goquery.Selection, d *catalog.MovieDetail) {
			d.SecondaryID = strings.TrimSpace(label.NextFiltered("a").Text())
		},
	}

	doc.Find("#content #info .pl").Each(func(_ int, label *goquery.Selection) {
		caption := strings.TrimSuffix(strings.TrimSpace(label.Text()), ":")
		if handle, ok := handlers[caption]; ok {
			handle(label, &d)
		}
	})
	return d
}

// primaryTitles derives the short title from the comments-section heading
// ("<title> 短评") and the original title as the remainder of the full
// heading once the short title is removed.
func primaryTitles(doc *goquery.Document) (title, original string) {
	whole := doc.Find("#content > h1 > span[property='v:itemreviewed']").Text()
	heading := doc.Find("#comments-section .mod-hd h2 i").Text()
	if n := len([]rune(heading)); n > 3 {
		title = string([]rune(heading)[:n-3])
	}
	if title == "" {
		return strings.TrimSpace(whole), ""
	}
	original = strings.TrimSpace(strings.Join(strings.Split(whole, title), ""))
	return title, original
}

func primarySummary(doc *goquery.Document) string {
	text := doc.Find("#link-report .all").Text()
	if strings.TrimSpace(text) == "" {
		text = doc.Find("#link-report span[property='v:summary']").Text()
	}
	return JoinParagraphs(text, "\n")
}

// labelSiblingText returns the raw text node immediately following a label,
// which is how the info block stores unwrapped values.
func labelSiblingText(label *goquery.Selection) string {
	node := label.Get(0)
	if node == nil {
		return ""
	}
	for sibling := node.NextSibling; sibling != nil; sibling = sibling.NextSibling {
		if sibling.Type == html.TextNode {
			if text := strings.TrimSpace(sibling.Data); text != "" {
				return text
			}
			continue
		}
		if sibling.Type == html.ElementNode {
			return ""
		}
	}
	return ""
}
