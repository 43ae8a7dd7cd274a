package respimg

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
	"k8s.io/klog/v2"
)

// AltModel is the default model used for alt text.
var AltModel = "gemini-2.5-flash"

// maxAltLen bounds generated alt text; screen readers handle short text best.
const maxAltLen = 125

var altPrompt = "Write alt text for this photo on a personal website. " +
	"Describe what is shown in one plain sentence of at most 20 words. " +
	"Do not start with 'image of' or 'photo of'. Do not use quotes or markdown."

// AltText asks a Gemini model to describe the fallback rendition of s.
func AltText(ctx context.Context, client *genai.Client, model string, s *Set) (string, error) {
	bs, err := os.ReadFile(s.Fallback.Path)
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(bs, s.Fallback.Format.MIME()),
		genai.NewPartFromText(altPrompt),
	}
	resp, err := client.Models.GenerateContent(ctx, model, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	alt := cleanAlt(resp.Text())
	klog.V(1).Infof("alt text for %s: %q", s.Source.Path, alt)
	return alt, nil
}

// cleanAlt flattens model output into a single short line.
func cleanAlt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, "\"'`*")
	if len(s) > maxAltLen {
		cut := strings.LastIndex(s[:maxAltLen], " ")
		if cut <= 0 {
			cut = maxAltLen
		}
		s = strings.TrimRight(s[:cut], ",;:") + "…"
	}
	return s
}

// SetAlt replaces the alt text of s and re-renders its markup.
func (s *Set) SetAlt(alt string) error {
	s.Alt = alt
	html, err := Render(s)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	s.HTML = html
	return nil
}
