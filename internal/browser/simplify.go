package browser

import (
	"strings"

	"golang.org/x/net/html"
)

// droppedElements are removed from the simplified markup regardless of attributes.
var droppedElements = map[string]bool{
	"script":   true,
	"noscript": true,
}

// droppedAttrMarkers remove an element when its id or class mentions one of
// these, which covers the usual cookie/consent/analytics chrome around a page.
var droppedAttrMarkers = []string{"cookie", "tracking", "analytics"}

// SimplifyMarkup produces a reduced copy of the page markup with scripts and
// tracking noise removed. The result is stored alongside the full DOM in the
// scrape artifact for consumers that only care about visual structure.
func SimplifyMarkup(markup string) (string, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", err
	}

	prune(doc)

	var sb strings.Builder
	if err := html.Render(&sb, doc); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func prune(n *html.Node) {
	var next *html.Node
	for child := n.FirstChild; child != nil; child = next {
		next = child.NextSibling
		if shouldDrop(child) {
			n.RemoveChild(child)
			continue
		}
		prune(child)
	}
}

func shouldDrop(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if droppedElements[n.Data] {
		return true
	}
	if n.Data == "iframe" {
		for _, attr := range n.Attr {
			if attr.Key == "src" && strings.Contains(attr.Val, "ads") {
				return true
			}
		}
	}
	for _, attr := range n.Attr {
		if attr.Key != "id" && attr.Key != "class" {
			continue
		}
		val := strings.ToLower(attr.Val)
		for _, marker := range droppedAttrMarkers {
			if strings.Contains(val, marker) {
				return true
			}
		}
	}
	return false
}
