package wecom

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/domain"
)

func renderedItem(source, title, titleZh, link string, tags ...string) domain.RenderedItem {
	return domain.RenderedItem{
		Item: domain.FeedItem{
			Source: source,
			Title:  title,
			Link:   link,
			Tags:   tags,
		},
		TitleZh:   titleZh,
		SummaryZh: "监管(regulation)摘要",
	}
}

func TestMarkdown_Layout(t *testing.T) {
	now := time.Date(2026, 9, 1, 4, 0, 0, 0, time.UTC) // 12:00 Beijing
	items := []domain.RenderedItem{
		renderedItem("BIS", "Stablecoin report", "稳定币报告", "https://example.org/1", "policy"),
		renderedItem("SEC", "Enforcement action", "执法行动", "https://example.org/2", "enforcement"),
	}

	got := Markdown(items, now)

	assert.True(t, strings.HasPrefix(got, "# 📚 加密政策/研报速览"))
	assert.Contains(t, got, "2026-09-01 12:00 北京时间")
	assert.Contains(t, got, "**1. <font color=\"info\">[BIS]</font> 稳定币报告**")
	assert.Contains(t, got, "**2. <font color=\"info\">[SEC]</font> 执法行动**")
	assert.Contains(t, got, "> 原题：Stablecoin report")
	assert.Contains(t, got, "[👉 阅读原文](https://example.org/1)")
	// Tags joined, sorted, backquoted.
	assert.Contains(t, got, "`#enforcement` `#policy`")
}

func TestMarkdown_TagsCapped(t *testing.T) {
	items := []domain.RenderedItem{
		renderedItem("BIS", "t", "t", "l", "a", "b", "c", "d", "e", "f"),
	}

	got := Markdown(items, time.Now())

	assert.Contains(t, got, "`#e`")
	assert.NotContains(t, got, "`#f`")
}

func TestMarkdown_UntranslatedTitleNotRepeated(t *testing.T) {
	it := renderedItem("BIS", "同名标题", "同名标题", "l")

	got := ItemMarkdown(1, it)

	assert.NotContains(t, got, "原题")
}

func TestPlainText_TitlesAndLinksOnly(t *testing.T) {
	now := time.Date(2026, 9, 1, 4, 0, 0, 0, time.UTC)
	items := []domain.RenderedItem{
		renderedItem("BIS", "Stablecoin report", "稳定币报告", "https://example.org/1"),
	}

	got := PlainText(items, now)

	assert.Contains(t, got, "1. [BIS] 稳定币报告")
	assert.Contains(t, got, "🔗 https://example.org/1")
	assert.NotContains(t, got, "摘要")
	assert.NotContains(t, got, "<font")
}

func TestItemMarkdown_LengthTracksContent(t *testing.T) {
	short := renderedItem("BIS", "a", "短", "l")
	long := renderedItem("BIS", "a", strings.Repeat("长", 100), "l")

	assert.Greater(t, len(ItemMarkdown(1, long)), len(ItemMarkdown(1, short)))
}
