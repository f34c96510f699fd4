package web

import _ "embed"

//go:embed assets/menu.html
var menuHTML []byte

//go:embed assets/bootstrap.min.css
var bootstrapCSS []byte
