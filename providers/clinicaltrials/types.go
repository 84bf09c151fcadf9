package clinicaltrials

import (
	"strings"

	"golang.org/x/net/html"
)

// ProvidedDocsPrefix ist der Pfad, unter dem das Register hochgeladene Studiendokumente ablegt.
const ProvidedDocsPrefix = "/ProvidedDocs/"

// collectDocuments sammelt alle Anker, deren Ziel mit ProvidedDocsPrefix beginnt,
// als Titel -> relative URL. Bei doppelten Titeln gewinnt der erste Treffer.
func collectDocuments(doc *html.Node) map[string]string {
	out := map[string]string{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := attr(n, "href"); strings.HasPrefix(href, ProvidedDocsPrefix) {
				title := strings.Join(strings.Fields(text(n)), " ")
				if _, seen := out[title]; !seen {
					out[title] = href
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(text(c))
	}
	return sb.String()
}
