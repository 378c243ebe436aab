package listener

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"crm-segment-engine/internal/segment"
	"crm-segment-engine/internal/storage"
)

// debounceWindow bounds how long a burst of notifications is coalesced
// before one refresh runs for every affected shop.
const debounceWindow = 200 * time.Millisecond

type notificationWaiter interface {
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
}

// ListenAndRefresh watches the Postgres notification channel for customer
// data changes. On a notification it reloads the affected shop (or every
// cached shop when the payload is empty), updates the cache, and rebases
// the live segment engines so no filtered view keeps stale entries.
func ListenAndRefresh(ctx context.Context, st *storage.Store, cache *storage.CustomerCache, engines *segment.Manager, channel string, baseBackoff time.Duration) {
	conn, err := st.PgxPool().Acquire(ctx)
	if err != nil {
		log.Error().Err(err).Msg("acquire conn for listen")
		return
	}
	defer conn.Release()

	if channel == "" {
		channel = st.ListenChannel()
	}
	if _, err = conn.Exec(ctx, "LISTEN "+channel); err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("listen")
		return
	}
	log.Info().Str("channel", channel).Msg("listening for DB changes")

	for {
		ntf, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("listener stopped")
				return
			}
			backoff := jitter(baseBackoff)
			log.Error().Err(err).Dur("retry_in", backoff).Msg("notify wait error")
			time.Sleep(backoff)
			continue
		}

		shops := collectBurst(ctx, conn.Conn(), ntf.Payload)
		if ctx.Err() != nil {
			log.Info().Msg("listener stopped")
			return
		}
		log.Info().Str("channel", ntf.Channel).Strs("shops", shops).Msg("db change; refreshing customers")
		for _, shop := range shops {
			refresh(ctx, st, cache, engines, shop)
		}
	}
}

// collectBurst drains notifications arriving inside the debounce window and
// returns the distinct payloads, so the trailing change of a burst still
// triggers a refresh. An empty payload means "all shops" and subsumes every
// named one.
func collectBurst(ctx context.Context, w notificationWaiter, first string) []string {
	seen := map[string]bool{first: true}

	window, cancel := context.WithTimeout(ctx, debounceWindow)
	defer cancel()
	for {
		ntf, err := w.WaitForNotification(window)
		if err != nil {
			break
		}
		seen[ntf.Payload] = true
	}

	if seen[""] {
		return []string{""}
	}
	shops := make([]string, 0, len(seen))
	for shop := range seen {
		shops = append(shops, shop)
	}
	sort.Strings(shops)
	return shops
}

func refresh(ctx context.Context, st *storage.Store, cache *storage.CustomerCache, engines *segment.Manager, shop string) {
	shops := []string{shop}
	if shop == "" {
		shops = cache.Shops()
	}
	for _, name := range shops {
		customers, err := st.FetchCustomers(ctx, name)
		if err != nil {
			log.Error().Err(err).Str("shop", name).Msg("refresh customers")
			continue
		}
		cache.Update(name, customers)
		engines.Rebase(name, customers)
	}
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	factor := 0.5 + rand.Float64() // 0.5x-1.5x
	return time.Duration(float64(base) * factor)
}
