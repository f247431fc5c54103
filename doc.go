// Package swrcache implements provider-agnostic stale-while-revalidate caching
// for paginated data. Reads return the last committed result array immediately
// and refresh it in the background; page keys are derived sequentially, so a
// page's key may depend on the previous page's data (cursor pagination).
//
// Components:
//   - Provider: byte store with TTL (e.g. Ristretto, BigCache, Redis, SQLite).
//   - Codec[V]: (de)serializes V <-> []byte.
//   - KeyLoader[V]: maps a page index (and the previous page's data) to a Key.
//     A zero Key at index 0 disables the sequence; at a later index it ends it.
//   - GenStore: generation counter per sequence. A fetch cycle commits only
//     while the generation it started under is still current, so a slow
//     superseded walk cannot clobber a newer one's writes. Local (in-process)
//     by default, optional Redis implementation for multi-replica setups.
//
// Keys:
//
//	page:<ns>:<key> - one page's data
//	many:<ns>:<id>  - the assembled result array for a sequence
//	size:<ns>:<id>  - the persisted page count
//	res:<ns>:<key>  - standalone single-value resources
//
// Typical use:
//
//	feed, _ := swrcache.New(swrcache.Options[Page]{
//	    Namespace: "feed",
//	    Provider:  mem,
//	    Codec:     codec.JSON[Page]{},
//	    Loader: func(i int, prev *Page) (swrcache.Key, error) {
//	        if i == 0 {
//	            return swrcache.NewKey("feed/latest"), nil
//	        }
//	        if prev.NextCursor == "" {
//	            return swrcache.Key{}, nil // no more pages
//	        }
//	        return swrcache.NewKey("feed", prev.NextCursor), nil
//	    },
//	    Fetch: fetchPage,
//	})
//	pages, _ := feed.Load(ctx)        // cached immediately, refreshed behind
//	pages, _ = feed.SetSize(ctx, 3)   // expose more pages; only new ones fetch
package swrcache
