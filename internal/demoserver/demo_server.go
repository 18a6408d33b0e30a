// Package demoserver serves a deliberately weak shop site for trying the
// scanner by hand and for end-to-end tests. Each page can be switched between
// a vulnerable and a hardened level at runtime.
package demoserver

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/raysh454/vulnprobe/internal/logging"
)

// DemoServer is a simple HTTP server hosting the demo pages.
type DemoServer struct {
	cfg    Config
	pages  map[string]PageDefinition
	levels map[string]Level // path -> current level
	mu     sync.RWMutex
	logger logging.Logger
}

// NewDemoServer creates a new demo server instance.
func NewDemoServer(cfg Config, logger logging.Logger) *DemoServer {
	if cfg.InitialLevel == 0 {
		cfg.InitialLevel = LevelVulnerable
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}

	pageMap := make(map[string]PageDefinition)
	levels := make(map[string]Level)
	for _, p := range GetAllPages() {
		pageMap[p.Path] = p
		levels[p.Path] = cfg.InitialLevel
	}

	return &DemoServer{
		cfg:    cfg,
		pages:  pageMap,
		levels: levels,
		logger: logger.With(logging.Field{Key: "component", Value: "demoserver"}),
	}
}

// Handler returns the demo site's routes.
func (s *DemoServer) Handler() http.Handler {
	mux := http.NewServeMux()

	for path := range s.pages {
		mux.HandleFunc(path, s.pageHandler(path))
	}

	// Control panel for level switching
	mux.HandleFunc("/demo/control", s.controlPanelHandler)
	mux.HandleFunc("/demo/set-level", s.setLevelHandler)
	mux.HandleFunc("/demo/levels", s.getLevelsHandler)
	mux.HandleFunc("/demo/harden-all", s.setAllHandler(LevelHardened))
	mux.HandleFunc("/demo/reset", s.setAllHandler(LevelVulnerable))

	return mux
}

// Start listens on the configured port until the server fails.
func (s *DemoServer) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.logger.Info("demo server starting",
		logging.Field{Key: "url", Value: "http://localhost" + addr},
		logging.Field{Key: "control_panel", Value: "http://localhost" + addr + "/demo/control"})
	return http.ListenAndServe(addr, s.Handler())
}

// SetLevel switches one page. It reports false for unknown paths.
func (s *DemoServer) SetLevel(path string, level Level) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pages[path]; !ok {
		return false
	}
	s.levels[path] = level
	return true
}

// SetAll switches every page.
func (s *DemoServer) SetAll(level Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path := range s.levels {
		s.levels[path] = level
	}
}

// pageHandler returns a handler for a specific page path.
func (s *DemoServer) pageHandler(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		pageDef, ok := s.pages[path]
		level := s.levels[path]
		s.mu.RUnlock()

		if !ok {
			http.NotFound(w, r)
			return
		}

		page := pageDef.Render(r, level)

		if level == LevelHardened {
			for k, v := range hardenedHeaders {
				w.Header().Set(k, v)
			}
		}
		for k, v := range page.Headers {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")

		status := page.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(page.HTML))
	}
}

// controlPanelHandler serves the control panel for level management.
func (s *DemoServer) controlPanelHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tmpl := template.Must(template.New("control").Parse(controlPanelHTML))
	data := struct {
		Pages  map[string]PageDefinition
		Levels map[string]Level
	}{
		Pages:  s.pages,
		Levels: s.levels,
	}
	w.Header().Set("Content-Type", "text/html")
	_ = tmpl.Execute(w, data)
}

// setLevelHandler sets the level for a specific page.
func (s *DemoServer) setLevelHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := r.FormValue("path")
	n, err := strconv.Atoi(r.FormValue("level"))
	level := Level(n)
	if err != nil || (level != LevelVulnerable && level != LevelHardened) {
		http.Error(w, "Invalid level", http.StatusBadRequest)
		return
	}
	if !s.SetLevel(path, level) {
		http.Error(w, "Unknown page", http.StatusNotFound)
		return
	}
	s.logger.Info("page level changed",
		logging.Field{Key: "path", Value: path},
		logging.Field{Key: "level", Value: level.String()})

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"path":    path,
		"level":   level.String(),
	})
}

// PageInfo describes a page's current level.
type PageInfo struct {
	Path        string `json:"path"`
	Description string `json:"description"`
	Level       string `json:"level"`
}

// getLevelsHandler returns the current level of every page, sorted by path.
func (s *DemoServer) getLevelsHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	pages := make([]PageInfo, 0, len(s.pages))
	for path, pageDef := range s.pages {
		pages = append(pages, PageInfo{
			Path:        path,
			Description: pageDef.Description,
			Level:       s.levels[path].String(),
		})
	}
	s.mu.RUnlock()

	sort.Slice(pages, func(i, j int) bool { return pages[i].Path < pages[j].Path })
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(pages)
}

func (s *DemoServer) setAllHandler(level Level) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.SetAll(level)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"message": "All pages set to " + level.String(),
		})
	}
}

const controlPanelHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Demo Server Control Panel</title>
    <style>
        body { font-family: system-ui, -apple-system, sans-serif; max-width: 1000px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        h1 { color: #333; border-bottom: 2px solid #dc3545; padding-bottom: 10px; }
        .page-card { background: white; border-radius: 8px; padding: 16px; margin: 12px 0; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .page-path { font-size: 1.1em; font-weight: bold; color: #007bff; text-decoration: none; }
        .page-desc { color: #666; margin: 5px 0; }
        .level { font-weight: bold; }
        button { padding: 6px 14px; border: none; border-radius: 4px; cursor: pointer; margin-right: 6px; }
        .vuln { background: #dc3545; color: white; }
        .hard { background: #28a745; color: white; }
    </style>
</head>
<body>
    <h1>Demo Server Control Panel</h1>
    <p>
        <button class="hard" onclick="post('/demo/harden-all', '')">Harden all</button>
        <button class="vuln" onclick="post('/demo/reset', '')">Reset all to vulnerable</button>
    </p>
    {{range $path, $page := .Pages}}
    <div class="page-card">
        <a href="{{$path}}" target="_blank" class="page-path">{{$path}}</a>
        <span class="level">({{index $.Levels $path}})</span>
        <div class="page-desc">{{$page.Description}}</div>
        <button class="vuln" onclick="post('/demo/set-level', 'path={{$path}}&level=1')">Vulnerable</button>
        <button class="hard" onclick="post('/demo/set-level', 'path={{$path}}&level=2')">Hardened</button>
    </div>
    {{end}}
    <script>
        function post(url, body) {
            fetch(url, {
                method: 'POST',
                headers: {'Content-Type': 'application/x-www-form-urlencoded'},
                body: body
            }).then(() => location.reload());
        }
    </script>
</body>
</html>`
