// Package family groups canonical charset names into the regional or vendor
// families a user interface shows an icon for.
package family

import (
	"strings"

	"github.com/greatbody/encoding-probe/internal/charset"
)

// Family is an icon category.
type Family string

const (
	Japan   Family = "japan"
	China   Family = "china"
	Korea   Family = "korea"
	US      Family = "us"
	Latin   Family = "latin"
	Greece  Family = "greece"
	Turkey  Family = "turkey"
	Vietnam Family = "vietnam"
	Windows Family = "windows"
	Mac     Family = "mac"
	IBM     Family = "ibm"
	Unicode Family = "unicode"
	None    Family = "none"
)

type rule struct {
	match  func(name string) bool
	family Family
}

func contains(subs ...string) func(string) bool {
	return func(name string) bool {
		for _, s := range subs {
			if strings.Contains(name, s) {
				return true
			}
		}
		return false
	}
}

// First match wins; order matters (windows-1252 is latin, not windows).
var rules = []rule{
	{func(n string) bool { return n == "windows-31j" || contains("jp", "jis")(n) }, Japan},
	{func(n string) bool { return strings.HasPrefix(n, "gb") || contains("big5", "cn", "950")(n) }, China},
	{func(n string) bool { return strings.HasSuffix(n, "kr") || contains("949")(n) }, Korea},
	{func(n string) bool { return n == "us-ascii" }, US},
	{contains("1252", "8859"), Latin},
	{contains("1253"), Greece},
	{contains("1254", "857"), Turkey},
	{contains("1258"), Vietnam},
	{contains("windows"), Windows},
	{contains("mac"), Mac},
	{contains("ibm"), IBM},
	{contains("utf"), Unicode},
}

// ForName classifies an already canonical charset name.
func ForName(canonical string) Family {
	name := strings.ToLower(canonical)
	for _, r := range rules {
		if r.match(name) {
			return r.family
		}
	}
	return None
}

// Of canonicalizes name with r before classifying it. Unknown names are None.
func Of(name string, r *charset.Resolver) Family {
	canonical, err := r.Canonicalize(name)
	if err != nil {
		return None
	}
	return ForName(canonical)
}
