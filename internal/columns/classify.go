// Package columns classifies the loosely structured headers of a weekly log sheet
// and turns one row into a cleaned per-runner record.
package columns

import (
	"log/slog"
	"regexp"
	"strings"
)

// Role is what a header is used for.
type Role int

const (
	RoleIgnored Role = iota
	RoleName
	RolePartner
	RoleMeta
	RoleTotal
	RoleDaily
)

func (r Role) String() string {
	switch r {
	case RoleName:
		return "name"
	case RolePartner:
		return "partner"
	case RoleMeta:
		return "meta"
	case RoleTotal:
		return "total"
	case RoleDaily:
		return "daily"
	default:
		return "ignored"
	}
}

// Header patterns. English and Chinese are both accepted.
var (
	exactNames = []string{"队员", "name", "姓名", "runner"}

	namePattern    = regexp.MustCompile(`(?i)name|runner|队员|姓名|名字`)
	partnerPattern = regexp.MustCompile(`(?i)partner|teammate|supply|补给|搭档|队友`)
	metaPattern    = regexp.MustCompile(`(?i)timestamp|date|time|url|link|video|image|photo|notes?|remark|备注|时间|日期|链接`)
	totalPattern   = regexp.MustCompile(`(?i)distance|total|km|mile|合计|总|距离|里程`)
	idPattern      = regexp.MustCompile(`(?i)^\s*id\s*$|\bid\b|编号`)

	weekdayPattern = regexp.MustCompile(`(?i)\b(mon(day)?|tues?(day)?|wed(nesday)?|thu(rs?)?(day)?|fri(day)?|sat(urday)?|sun(day)?)\b|(周|星期|礼拜)[一二三四五六日天]`)
	shortDate      = regexp.MustCompile(`^\s*\d{1,2}[/-]\d{1,2}`)
)

// IsDayHeader reports whether h names a weekday or starts with a D/D or D-D date.
func IsDayHeader(h string) bool {
	return weekdayPattern.MatchString(h) || shortDate.MatchString(h)
}

// Classification is the result of applying the header rules to one row's key set.
type Classification struct {
	NameKey    string
	TotalKey   string
	PartnerKey string
	DailyKeys  []string
	NameFound  bool
	headers    []string
	roles      map[string]Role
}

// HasTotal reports whether a pre-aggregated total column was found.
func (c Classification) HasTotal() bool {
	return c.TotalKey != ""
}

func (c Classification) roleOf(h string) Role {
	return c.roles[h]
}

// LogValue lists every header with its role, in sheet order.
func (c Classification) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(c.headers))
	for _, h := range c.headers {
		attrs = append(attrs, slog.String(h, c.roleOf(h).String()))
	}
	return slog.GroupValue(attrs...)
}

// Classify applies the rules below, in order, to headers. The first matching rule wins
// for each header:
//
//  1. partner marker column (first one only)
//  2. name column: an exact well-known header if present, else the first name-like header
//  3. metadata (timestamp, date, url, link, video, image, notes) is never a distance
//  4. total: distance/total-like, not name/id-like, not a day header (first one only)
//  5. daily: a weekday token or a leading D/D date
//
// Classify is a pure function of the header slice.
func Classify(headers []string) Classification {
	c := Classification{headers: headers, roles: make(map[string]Role, len(headers))}

	c.NameKey = pickName(headers)
	c.NameFound = c.NameKey != ""

	for _, h := range headers {
		switch {
		case h == c.NameKey && c.NameFound:
			c.roles[h] = RoleName
		case partnerPattern.MatchString(h):
			if c.PartnerKey == "" {
				c.PartnerKey = h
				c.roles[h] = RolePartner
			}
		case namePattern.MatchString(h):
			// a second name-like column, e.g. "Nickname"
		case metaPattern.MatchString(h):
			c.roles[h] = RoleMeta
		case totalPattern.MatchString(h) && !idPattern.MatchString(h) && !IsDayHeader(h):
			if c.TotalKey == "" {
				c.TotalKey = h
				c.roles[h] = RoleTotal
			}
		case IsDayHeader(h):
			c.DailyKeys = append(c.DailyKeys, h)
			c.roles[h] = RoleDaily
		}
	}
	return c
}

func pickName(headers []string) string {
	for _, want := range exactNames {
		for _, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), want) {
				return h
			}
		}
	}
	for _, h := range headers {
		if namePattern.MatchString(h) && !partnerPattern.MatchString(h) {
			return h
		}
	}
	return ""
}

var (
	mediaURL       = regexp.MustCompile(`(?i)url|link`)
	mediaTimestamp = regexp.MustCompile(`(?i)timestamp|date`)
	mediaDistance  = regexp.MustCompile(`(?i)distance|total|run|km|mile`)
)

// LooksLikeMedia reports whether headers look like the gallery tab: a URL-like and a
// timestamp-like column but no distance-like column. Name-like headers are not
// considered for the distance test since "Runner" contains "run".
func LooksLikeMedia(headers []string) bool {
	var hasURL, hasTimestamp, hasDistance bool
	for _, h := range headers {
		if mediaURL.MatchString(h) {
			hasURL = true
		}
		if mediaTimestamp.MatchString(h) {
			hasTimestamp = true
		}
		if !namePattern.MatchString(h) && mediaDistance.MatchString(h) {
			hasDistance = true
		}
	}
	return hasURL && hasTimestamp && !hasDistance
}
