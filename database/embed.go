// Package database embed dosyası: migration SQL dosyalarını binary'ye gömer.
//
// Her dialect kendi alt dizinine sahiptir (migrations/sqlite, migrations/postgres);
// New, açtığı driver'a göre doğru alt dizini seçer.
package database

import "embed"

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var EmbeddedMigrations embed.FS
