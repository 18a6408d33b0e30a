package demoserver

import (
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
)

// Page is one rendered response.
type Page struct {
	Status  int
	HTML    string
	Headers map[string]string
}

// PageDefinition describes a demo route and how it renders at each level.
type PageDefinition struct {
	Path        string
	Description string
	Render      func(r *http.Request, level Level) Page
}

// hardenedHeaders are sent by every page at LevelHardened.
var hardenedHeaders = map[string]string{
	"Content-Security-Policy": "default-src 'self'",
	"X-Frame-Options":         "DENY",
	"X-Content-Type-Options":  "nosniff",
	"Referrer-Policy":         "no-referrer",
	"Permissions-Policy":      "camera=(), microphone=()",
}

const (
	mysqlError    = "You have an error in your SQL syntax; check the manual that corresponds to your MySQL server version for the right syntax to use near '%s' at line 1"
	mssqlError    = "Unclosed quotation mark after the character string '%s'."
	navigationBar = `<nav><a href="/">Home</a> | <a href="/products?id=1">Products</a> | <a href="/search?q=hello">Search</a> | <a href="/login">Login</a> | <a href="/contact">Contact</a></nav>`
)

// GetAllPages returns all demo page definitions.
func GetAllPages() []PageDefinition {
	return []PageDefinition{
		getHomePage(),
		getProductsPage(),
		getSearchPage(),
		getLoginPage(),
		getContactPage(),
	}
}

func layout(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>Demo Shop - %s</title></head>
<body>
%s
<h1>%s</h1>
%s
</body>
</html>`, title, navigationBar, title, body)
}

func escapeFor(level Level, s string) string {
	if level == LevelHardened {
		return html.EscapeString(s)
	}
	return s
}

func hasQuote(values ...string) bool {
	for _, v := range values {
		if strings.ContainsAny(v, `'"`) {
			return true
		}
	}
	return false
}

// ===== HOME PAGE =====
func getHomePage() PageDefinition {
	return PageDefinition{
		Path:        "/",
		Description: "Landing page linking every other page",
		Render: func(r *http.Request, level Level) Page {
			if r.URL.Path != "/" {
				return Page{Status: http.StatusNotFound, HTML: layout("Not found", "<p>No such page.</p>")}
			}
			return Page{HTML: layout("Home", `<p>Welcome to the demo shop.</p>`)}
		},
	}
}

// ===== PRODUCTS PAGE =====
func getProductsPage() PageDefinition {
	return PageDefinition{
		Path:        "/products",
		Description: "Product lookup by id; leaks MySQL errors on quotes",
		Render: func(r *http.Request, level Level) Page {
			id := r.URL.Query().Get("id")
			if level == LevelVulnerable && hasQuote(id) {
				return Page{HTML: layout("Error", "<pre>"+fmt.Sprintf(mysqlError, id)+"</pre>")}
			}
			n, err := strconv.Atoi(id)
			if err != nil || n < 1 {
				return Page{HTML: layout("Products", "<p>Unknown product.</p>")}
			}
			return Page{HTML: layout("Products", fmt.Sprintf("<p>Product #%d: Teapot, 12.50 EUR</p>", n))}
		},
	}
}

// ===== SEARCH PAGE =====
func getSearchPage() PageDefinition {
	return PageDefinition{
		Path:        "/search",
		Description: "Search echoing the query into the page",
		Render: func(r *http.Request, level Level) Page {
			q := r.URL.Query().Get("q")
			return Page{HTML: layout("Search", "<p>Results for: "+escapeFor(level, q)+"</p><p>No matches.</p>")}
		},
	}
}

// ===== LOGIN PAGE =====
func getLoginPage() PageDefinition {
	const form = `<form action="/login" method="POST">
<input type="text" name="username" value="">
<input type="password" name="password" value="">
<input type="submit" value="Sign in">
</form>`
	return PageDefinition{
		Path:        "/login",
		Description: "POST login form; leaks SQL Server errors on quotes",
		Render: func(r *http.Request, level Level) Page {
			if r.Method != http.MethodPost {
				return Page{HTML: layout("Login", form)}
			}
			user, pass := r.PostFormValue("username"), r.PostFormValue("password")
			if level == LevelVulnerable && hasQuote(user, pass) {
				return Page{HTML: layout("Error", "<pre>"+fmt.Sprintf(mssqlError, user+pass)+"</pre>")}
			}
			return Page{Status: http.StatusUnauthorized, HTML: layout("Login", "<p>Invalid credentials.</p>"+form)}
		},
	}
}

// ===== CONTACT PAGE =====
func getContactPage() PageDefinition {
	const form = `<form action="/contact" method="get">
<input type="text" name="name" value="guest">
<textarea name="message"></textarea>
<input type="submit" value="Send">
</form>`
	return PageDefinition{
		Path:        "/contact",
		Description: "GET contact form echoing the message back",
		Render: func(r *http.Request, level Level) Page {
			msg := r.URL.Query().Get("message")
			body := form
			if msg != "" {
				body = "<p>Thanks, we received: " + escapeFor(level, msg) + "</p>" + form
			}
			return Page{HTML: layout("Contact", body)}
		},
	}
}
