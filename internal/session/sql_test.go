package session

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"

	"github.com/iliyamo/construction-supply-tracker/internal/model"
)

func TestSQLStore(t *testing.T) {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		t.Skipf("mysql unreachable: %v", err)
	}

	st := NewSQLStore(db, "test-"+t.Name())
	if err := st.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Delete(ctx, KeyToken)
		_ = st.Delete(ctx, KeyRole)
	})

	sess := New(st, nil)
	if err := sess.Login(ctx, &fakeAuth{res: model.LoginResult{Token: "tok-1", Role: model.RoleManager}}, "m", "pw", model.RoleManager); err != nil {
		t.Fatalf("Login: %v", err)
	}
	restored := New(st, nil)
	if err := restored.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Token() != "tok-1" {
		t.Errorf("restored token = %q", restored.Token())
	}
	if err := restored.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, ok, _ := st.Get(ctx, KeyToken); ok {
		t.Error("token row survived logout")
	}
}
