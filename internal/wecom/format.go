package wecom

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/domain"
)

var beijing = time.FixedZone("CST", 8*60*60)

const maxRenderedTags = 5

// Markdown renders a batch as the WeCom markdown message: header line,
// then per item its index, source tag, localized title, original title,
// link marker and localized summary, followed by the joined topic tags.
func Markdown(items []domain.RenderedItem, now time.Time) string {
	var lines []string
	lines = append(lines,
		"# 📚 加密政策/研报速览",
		fmt.Sprintf("> ⏰ %s 北京时间", now.In(beijing).Format("2006-01-02 15:04")),
		"",
	)

	for i, it := range items {
		lines = append(lines, strings.Split(ItemMarkdown(i+1, it), "\n")...)
	}

	if tags := joinedTags(items); tags != "" {
		lines = append(lines, tags)
	}

	return strings.Join(lines, "\n")
}

// ItemMarkdown renders one item's markdown section. The batcher uses its
// length as the item's byte share of a message.
func ItemMarkdown(index int, it domain.RenderedItem) string {
	var lines []string

	sourceTag := fmt.Sprintf("<font color=\"info\">[%s]</font>", it.Item.Source)
	lines = append(lines, fmt.Sprintf("**%d. %s %s**", index, sourceTag, it.TitleZh))
	if it.TitleZh != it.Item.Title {
		lines = append(lines, fmt.Sprintf("> 原题：%s", it.Item.Title))
	}
	if it.SummaryZh != "" {
		lines = append(lines, fmt.Sprintf("> %s", truncate(it.SummaryZh, 150)))
	}
	lines = append(lines, fmt.Sprintf("[👉 阅读原文](%s)", it.Item.Link), "")

	return strings.Join(lines, "\n")
}

// PlainText is the reduced rendering used when the markdown form exceeds the
// byte budget: titles and links only, no summaries.
func PlainText(items []domain.RenderedItem, now time.Time) string {
	var lines []string
	lines = append(lines,
		"📚 加密政策/研报速览",
		fmt.Sprintf("⏰ %s 北京时间", now.In(beijing).Format("2006-01-02 15:04")),
		strings.Repeat("━", 20),
		"",
	)

	for i, it := range items {
		lines = append(lines, fmt.Sprintf("%d. [%s] %s", i+1, it.Item.Source, it.TitleZh))
		lines = append(lines, fmt.Sprintf("   🔗 %s", it.Item.Link))
	}

	return strings.Join(lines, "\n")
}

func joinedTags(items []domain.RenderedItem) string {
	set := map[string]struct{}{}
	for _, it := range items {
		for _, t := range it.Item.Tags {
			set[t] = struct{}{}
		}
	}
	if len(set) == 0 {
		return ""
	}

	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	if len(tags) > maxRenderedTags {
		tags = tags[:maxRenderedTags]
	}

	quoted := make([]string, len(tags))
	for i, t := range tags {
		quoted[i] = fmt.Sprintf("`#%s`", t)
	}
	return strings.Join(quoted, " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
