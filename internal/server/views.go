// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"slices"
	"strings"

	"github.com/hashicorp/cap-oidc-login/internal/auth"
)

//go:embed views/*.html
var viewFS embed.FS

const (
	viewIndex = "index"
	viewUser  = "user"
	viewError = "error"
)

// viewData is every view's data.
type viewData struct {
	Title        string
	Principal    *auth.Principal
	LoginEnabled bool

	// user
	Claims []claim

	// error
	Message string
	Status  int
	Detail  string
}

type claim struct {
	Name  string
	Value string
}

// views are the parsed pages, each wrapped in the layout.
type views map[string]*template.Template

func parseViews() (views, error) {
	const op = "server.parseViews"
	v := views{}
	for _, name := range []string{viewIndex, viewUser, viewError} {
		t, err := template.ParseFS(viewFS, "views/layout.html", "views/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", op, name, err)
		}
		v[name] = t
	}
	return v, nil
}

// render executes the view before writing anything, so a template error
// can still become an error page.
func (v views) render(w http.ResponseWriter, status int, name string, data viewData) error {
	const op = "server.render"
	t, ok := v[name]
	if !ok {
		return fmt.Errorf("%s: unknown view %q: %w", op, name, ErrInvalidParameter)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("%s: %s: %w", op, name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// claimsOf lists the principal's raw claims sorted by name.
func claimsOf(p *auth.Principal) []claim {
	out := make([]claim, 0, len(p.Claims))
	for k, v := range p.Claims {
		c := claim{Name: k}
		switch v := v.(type) {
		case string:
			c.Value = v
		default:
			b, err := json.Marshal(v)
			if err != nil {
				c.Value = fmt.Sprint(v)
				break
			}
			c.Value = string(b)
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b claim) int { return strings.Compare(a.Name, b.Name) })
	return out
}
