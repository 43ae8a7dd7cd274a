package respimg

import (
	"bytes"
	"fmt"
	"html/template"
)

var pictureTmpl = template.Must(template.New("picture").Parse(`<picture>
   <source srcset="{{.AVIFSrcset}}" sizes="{{.Sizes}}" type="image/avif">
   <source srcset="{{.WebPSrcset}}" sizes="{{.Sizes}}" type="image/webp">
   <img src="{{.Src}}" alt="{{.Alt}}">
</picture>
`))

// Render returns the <picture> fragment for a set.
func Render(s *Set) (string, error) {
	data := struct {
		AVIFSrcset string
		WebPSrcset string
		Sizes      string
		Src        string
		Alt        string
	}{
		AVIFSrcset: s.AVIFSrcset,
		WebPSrcset: s.WebPSrcset,
		Sizes:      s.SizesAttr,
		Src:        s.Fallback.URL,
		Alt:        s.Alt,
	}

	var tpl bytes.Buffer
	if err := pictureTmpl.Execute(&tpl, data); err != nil {
		return "", fmt.Errorf("execute: %w", err)
	}
	return tpl.String(), nil
}
