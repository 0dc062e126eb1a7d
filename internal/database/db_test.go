package database

import (
	"testing"

	"github.com/iliyamo/construction-supply-tracker/internal/config"
)

func TestDSN(t *testing.T) {
	got := DSN(config.DBConfig{User: "app", Pass: "pw", Host: "db", Port: "3306", Name: "supply"})
	want := "app:pw@tcp(db:3306)/supply?charset=utf8mb4&parseTime=true&loc=UTC"
	if got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
	got = DSN(config.DBConfig{User: "app", Host: "db", Port: "3306", Name: "supply"})
	if got != "app@tcp(db:3306)/supply?charset=utf8mb4&parseTime=true&loc=UTC" {
		t.Errorf("DSN without password = %q", got)
	}
}
