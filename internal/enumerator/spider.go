package enumerator

import (
	"context"
	"strings"

	"github.com/raysh454/vulnprobe/internal/logging"
	"github.com/raysh454/vulnprobe/internal/utils"
	"github.com/raysh454/vulnprobe/internal/webclient"
	"golang.org/x/net/html"
)

const (
	DefaultMaxDepth = 2
	DefaultMaxPages = 50
)

// Config bounds a crawl.
type Config struct {
	MaxDepth int `yaml:"max_depth" json:"max_depth"`
	MaxPages int `yaml:"max_pages" json:"max_pages"`
}

// Spider is a same-origin breadth-first crawler over anchor links.
type Spider struct {
	cfg    Config
	wc     webclient.WebClient
	logger logging.Logger
	onPage PageCallback
}

// NewSpider builds a crawler. Non-positive limits fall back to the defaults.
func NewSpider(cfg Config, wc webclient.WebClient, logger logging.Logger) *Spider {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Spider{
		cfg:    cfg,
		wc:     wc,
		logger: logger.With(logging.Field{Key: "component", Value: "spider"}),
	}
}

// OnPage registers a callback for visited pages.
func (s *Spider) OnPage(cb PageCallback) {
	s.onPage = cb
}

type frontierItem struct {
	url   string
	depth int
}

type spiderHelper struct {
	spider  *Spider
	seed    string
	queue   []frontierItem
	seen    map[string]struct{}
	visited map[string]struct{}
	results []string
}

func newSpiderHelper(spider *Spider, seed string) *spiderHelper {
	seed = utils.StripFragment(seed)
	return &spiderHelper{
		spider:  spider,
		seed:    seed,
		queue:   []frontierItem{{url: seed, depth: 0}},
		seen:    map[string]struct{}{seed: {}},
		visited: map[string]struct{}{},
	}
}

// extractLinksHTML walks node collecting href values of <a> elements.
func extractLinksHTML(node *html.Node, hrefs *[]string) {
	if node.Type == html.ElementNode && node.Data == "a" {
		for _, attr := range node.Attr {
			if attr.Key == "href" && strings.TrimSpace(attr.Val) != "" {
				*hrefs = append(*hrefs, attr.Val)
				break
			}
		}
	}
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		extractLinksHTML(c, hrefs)
	}
}

// ExtractLinks returns the absolute, fragment-free http(s) anchor targets of
// body resolved against pageURL, in document order without duplicates.
// Unparseable markup yields no links.
func ExtractLinks(body, pageURL string) []string {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil
	}
	var hrefs []string
	extractLinksHTML(doc, &hrefs)

	seen := make(map[string]struct{}, len(hrefs))
	links := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		abs, err := utils.Resolve(pageURL, href)
		if err != nil {
			continue
		}
		abs = utils.StripFragment(abs)
		if !utils.ValidateURL(abs) {
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	}
	return links
}

func (sh *spiderHelper) fetch(ctx context.Context, target string) string {
	resp, err := sh.spider.wc.Get(ctx, target)
	if resp == nil {
		sh.spider.logger.Warn("error while crawling page",
			logging.Field{Key: "url", Value: target},
			logging.Field{Key: "error", Value: err})
		return ""
	}
	return resp.Text()
}

// budgetReached reports whether visited plus queued pages hit the page cap.
func (sh *spiderHelper) budgetReached() bool {
	return len(sh.visited)+len(sh.queue) >= sh.spider.cfg.MaxPages
}

func (sh *spiderHelper) run(ctx context.Context) {
	for len(sh.queue) > 0 && len(sh.results) < sh.spider.cfg.MaxPages {
		if ctx.Err() != nil {
			return
		}
		item := sh.queue[0]
		sh.queue = sh.queue[1:]
		if _, done := sh.visited[item.url]; done {
			continue
		}
		sh.visited[item.url] = struct{}{}
		sh.results = append(sh.results, item.url)
		if sh.spider.onPage != nil {
			sh.spider.onPage(item.url, item.depth)
		}

		if item.depth >= sh.spider.cfg.MaxDepth {
			continue
		}

		body := sh.fetch(ctx, item.url)
		for _, link := range ExtractLinks(body, item.url) {
			if sh.budgetReached() {
				break
			}
			if _, ok := sh.seen[link]; ok {
				continue
			}
			if !utils.SameOrigin(sh.seed, link) {
				continue
			}
			sh.seen[link] = struct{}{}
			sh.queue = append(sh.queue, frontierItem{url: link, depth: item.depth + 1})
		}
	}
}

// Enumerate crawls from target and returns the visited pages in visit order,
// starting with the seed. Transport failures only prune the failing page's
// links; the crawl itself does not fail.
func (s *Spider) Enumerate(ctx context.Context, target string) ([]string, error) {
	helper := newSpiderHelper(s, target)
	helper.run(ctx)
	s.logger.Info("crawl finished",
		logging.Field{Key: "seed", Value: helper.seed},
		logging.Field{Key: "pages", Value: len(helper.results)},
		logging.Field{Key: "max_depth", Value: s.cfg.MaxDepth})
	return helper.results, nil
}
