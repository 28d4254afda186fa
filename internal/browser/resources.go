package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockResources fails requests whose resource type is listed. Names use
// the config spelling (images, fonts, media, stylesheets); anything else is
// matched against the raw CDP type, lowercased.
func blockResources(page *rod.Page, types []string) *rod.HijackRouter {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[strings.ToLower(t)] = true
	}

	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if blocked(set, h.Request.Type()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}

var configNames = map[string]string{
	"image":      "images",
	"font":       "fonts",
	"media":      "media",
	"stylesheet": "stylesheets",
}

func blocked(set map[string]bool, t proto.NetworkResourceType) bool {
	raw := strings.ToLower(string(t))
	if name, ok := configNames[raw]; ok {
		return set[name]
	}
	return set[raw]
}
