package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const primaryDetailPage = `<html><body>
<div id="content">
  <h1>
    <span property="v:itemreviewed">肖申克的救赎 The Shawshank Redemption</span>
    <span class="year">(1994)</span>
  </h1>
  <div id="mainpic"><a class="nbgnbg"><img src="https://img.example.com/cover/p480747492.jpg"/></a></div>
  <div id="info">
    <span class="pl">导演</span>: <span class="attrs"><a>弗兰克·德拉邦特</a></span><br/>
    <span class="pl">编剧</span>: <span class="attrs"><a>弗兰克·德拉邦特</a> / <a>斯蒂芬·金</a></span><br/>
    <span class="pl">主演</span>: <span class="attrs">蒂姆·罗宾斯 / 摩根·弗里曼 ... 瑞德</span><br/>
    <span class="pl">类型:</span> <span property="v:genre">剧情</span> / <span property="v:genre">犯罪</span> / <span property="v:genre">实验</span><br/>
    <span class="pl">制片国家/地区:</span> 美国 / 加拿大 Canada<br/>
    <span class="pl">语言:</span> 英语 / 西班牙语<br/>
    <span class="pl">上映日期:</span> <span property="v:initialReleaseDate" content="1994-09-10(多伦多电影节)">1994-09-10</span><br/>
    <span class="pl">片长:</span> <span property="v:runtime" content="142分钟">142分钟</span><br/>
    <span class="pl">又名:</span> 月黑高飞(港) / 刺激1995(台)<br/>
    <span class="pl">IMDb链接:</span> <a href="https://www.imdb.example.com/title/tt0111161">tt0111161</a><br/>
  </div>
  <div id="interest_sectl">
    <strong class="rating_num">9.7</strong>
    <span property="v:votes">2691072</span>
  </div>
  <div id="link-report">
    <span property="v:summary">
      20世纪40年代末，小有成就的青年银行家安迪入狱。
      他拒绝绝望。
    </span>
  </div>
  <div id="comments-section">
    <div class="mod-hd"><h2><i>肖申克的救赎 短评</i></h2></div>
  </div>
</div>
</body></html>`

func parseDoc(t *testing.T, page string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}

func TestPrimaryDetailFullPage(t *testing.T) {
	t.Parallel()

	d := PrimaryDetail(parseDoc(t, primaryDetailPage), nil)

	require.Equal(t, "肖申克的救赎", d.Title)
	require.Equal(t, "The Shawshank Redemption", d.OriginalTitle)
	require.Equal(t, "1994", d.PublishYear)
	require.Equal(t, "https://img.example.com/cover/p480747492.jpg", d.CoverURL)
	require.InDelta(t, 9.7, d.PrimaryRating, 1e-9)
	require.Equal(t, 2691072, d.PrimaryRatingCount)

	require.Equal(t, []string{"弗兰克·德拉邦特"}, d.Directors)
	require.Equal(t, []string{"弗兰克·德拉邦特", "斯蒂芬·金"}, d.Writers)
	require.Equal(t, []string{"蒂姆·罗宾斯", "摩根·弗里曼"}, d.Actors)
	// "实验" is not in the allow-list and must be dropped silently.
	require.Equal(t, []string{"剧情", "犯罪"}, d.Genres)
	require.Equal(t, []string{"美国", "加拿大"}, d.Regions)
	require.Equal(t, "英语,西班牙语", d.Language)

	require.Equal(t, "1994-09-10", d.ReleaseDate)
	require.Equal(t, 142, d.Duration)
	require.Equal(t, "月黑高飞(港),刺激1995(台)", d.Alias)
	require.Equal(t, "tt0111161", d.SecondaryID)
	require.Equal(t, "20世纪40年代末，小有成就的青年银行家安迪入狱。\n他拒绝绝望。", d.SummaryPrimary)
}

func TestPrimaryDetailMissingNodesYieldZeroValues(t *testing.T) {
	t.Parallel()

	d := PrimaryDetail(parseDoc(t, `<html><body><div id="content"></div></body></html>`), nil)
	require.Empty(t, d.Title)
	require.Empty(t, d.SummaryPrimary)
	require.Zero(t, d.Duration)
	require.Nil(t, d.Directors)
	require.Nil(t, d.Genres)
}

func TestPrimaryBlocked(t *testing.T) {
	t.Parallel()

	require.False(t, PrimaryBlocked(parseDoc(t, primaryDetailPage)))

	blockedPage := `<html><body>
		<div id="comments-section"><div class="mod-hd"><h2><i>  </i></h2></div></div>
	</body></html>`
	require.True(t, PrimaryBlocked(parseDoc(t, blockedPage)))
	require.True(t, PrimaryBlocked(parseDoc(t, `<html><body></body></html>`)))
}

func TestPrimaryDetailCustomGenreAllowList(t *testing.T) {
	t.Parallel()

	d := PrimaryDetail(parseDoc(t, primaryDetailPage), []string{"犯罪"})
	require.Equal(t, []string{"犯罪"}, d.Genres)
}
