// package repositories provides persistence layer implementations for all model types.
//
// The store is a token cache keyed by Spotify account id plus sync bookkeeping
// for observed playlists. Writes are last-write-wins upserts; there is no
// delete path.
package repositories
