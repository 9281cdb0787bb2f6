package sqlite

const insertTrackSQL = `INSERT INTO tracks (path, position, title, artist, album, genre, year, duration_ms, play_count, last_played, added_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectTracksSQL = `SELECT path, title, artist, album, genre, year, duration_ms, play_count, last_played, added_at
FROM tracks
ORDER BY position`

const deleteTracksSQL = `DELETE FROM tracks`

const deleteTrackSQL = `DELETE FROM tracks WHERE path = ?`

const upsertPlaylistSQL = `INSERT INTO playlists (id, name, created_at, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name=excluded.name,
            updated_at=excluded.updated_at`

const selectPlaylistSQL = `SELECT id, name, created_at, updated_at FROM playlists WHERE id = ?`

const selectPlaylistIDsSQL = `SELECT id FROM playlists ORDER BY created_at, id`

const deletePlaylistSQL = `DELETE FROM playlists WHERE id = ?`

const insertPlaylistTrackSQL = `INSERT INTO playlist_tracks (playlist_id, position, path, title, artist, album, genre, year, duration_ms)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectPlaylistTracksSQL = `SELECT path, title, artist, album, genre, year, duration_ms
FROM playlist_tracks
WHERE playlist_id = ?
ORDER BY position`

const deletePlaylistTracksSQL = `DELETE FROM playlist_tracks WHERE playlist_id = ?`
