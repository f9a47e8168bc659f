// Package batch packs rendered items into delivery batches bounded by a
// byte budget and an item cap.
package batch

import "github.com/wangzetysx-web/crypto-policy-rss/internal/domain"

// Pack greedily accumulates items in input order: a batch closes when adding
// the next item would exceed either the byte budget or the item cap. Order
// is never changed; upstream controls delivery priority. An item whose own
// size exceeds the budget gets a batch of its own, flagged oversized so the
// dispatcher can degrade its rendering.
func Pack(items []domain.RenderedItem, maxBytes, maxItems int) []domain.MessageBatch {
	var batches []domain.MessageBatch
	var cur domain.MessageBatch

	flush := func() {
		if len(cur.Items) > 0 {
			batches = append(batches, cur)
			cur = domain.MessageBatch{}
		}
	}

	for _, item := range items {
		if item.SerializedLen > maxBytes {
			flush()
			batches = append(batches, domain.MessageBatch{
				Items:     []domain.RenderedItem{item},
				Bytes:     item.SerializedLen,
				Oversized: true,
			})
			continue
		}

		if len(cur.Items) >= maxItems || cur.Bytes+item.SerializedLen > maxBytes {
			flush()
		}
		cur.Items = append(cur.Items, item)
		cur.Bytes += item.SerializedLen
	}
	flush()

	return batches
}
