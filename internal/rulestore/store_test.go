package rulestore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/recruitflow/automation/internal/db"
	"github.com/recruitflow/automation/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Open(fmt.Sprintf("file:rulestore_test_%d?mode=memory&cache=shared", time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

func seedRules(t *testing.T, conn *gorm.DB) {
	t.Helper()
	rules := []models.Rule{
		{Name: "a", TriggerType: models.TriggerModelCreated, TriggerModel: "job", ActionType: models.ActionSendWebhook, IsActive: true},
		{Name: "b", TriggerType: models.TriggerStageChanged, TriggerModel: "job", ActionType: models.ActionSendWebhook, IsActive: true},
		{Name: "c", TriggerType: models.TriggerModelCreated, TriggerModel: "job", ActionType: models.ActionSendWebhook, IsActive: false},
		{Name: "d", TriggerType: models.TriggerModelCreated, TriggerModel: "company", ActionType: models.ActionSendWebhook, IsActive: true},
		{Name: "e", TriggerType: models.TriggerSignal, SignalName: "candidate_hired", ActionType: models.ActionSendWebhook, IsActive: true},
		{Name: "f", TriggerType: models.TriggerViewAction, SignalName: "candidate_hired", ActionType: models.ActionSendWebhook, IsActive: true},
		{Name: "g", TriggerType: models.TriggerManual, SignalName: "candidate_hired", ActionType: models.ActionSendWebhook, IsActive: true},
		{Name: "h", TriggerType: models.TriggerScheduled, TriggerModel: "job", ActionType: models.ActionSendWebhook, IsActive: true},
	}
	for i := range rules {
		if err := conn.Create(&rules[i]).Error; err != nil {
			t.Fatalf("seed rule %s: %v", rules[i].Name, err)
		}
	}
}

func TestActiveForModelFiltersTypeModelAndActive(t *testing.T) {
	conn := testDB(t)
	seedRules(t, conn)
	store := NewGormStore(conn)

	rules, err := store.ActiveForModel(context.Background(), "job",
		[]models.TriggerType{models.TriggerModelCreated})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rules) != 1 || rules[0].Name != "a" {
		t.Fatalf("rules = %+v, want only rule a", rules)
	}

	rules, err = store.ActiveForModel(context.Background(), "job",
		[]models.TriggerType{models.TriggerModelCreated, models.TriggerStageChanged})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("rules = %d, want 2", len(rules))
	}
}

func TestActiveForSignalSpansSignalAndViewAction(t *testing.T) {
	conn := testDB(t)
	seedRules(t, conn)
	store := NewGormStore(conn)

	rules, err := store.ActiveForSignal(context.Background(), "candidate_hired",
		[]models.TriggerType{models.TriggerSignal, models.TriggerViewAction})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("rules = %d, want signal + view_action", len(rules))
	}

	rules, err = store.ActiveForSignal(context.Background(), "candidate_hired",
		[]models.TriggerType{models.TriggerManual})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rules) != 1 || rules[0].Name != "g" {
		t.Fatalf("rules = %+v, want only the manual rule", rules)
	}
}

func TestActiveScheduled(t *testing.T) {
	conn := testDB(t)
	seedRules(t, conn)
	store := NewGormStore(conn)

	rules, err := store.ActiveScheduled(context.Background())
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rules) != 1 || rules[0].Name != "h" {
		t.Fatalf("rules = %+v, want only the scheduled rule", rules)
	}
}

func TestGetLoadsInactiveRules(t *testing.T) {
	conn := testDB(t)
	seedRules(t, conn)
	store := NewGormStore(conn)

	var inactive models.Rule
	if err := conn.Where("name = ?", "c").Take(&inactive).Error; err != nil {
		t.Fatalf("find seed: %v", err)
	}
	rule, err := store.Get(context.Background(), inactive.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rule.Name != "c" || rule.IsActive {
		t.Fatalf("rule = %+v", rule)
	}

	if _, err = store.Get(context.Background(), 9999); err == nil {
		t.Fatal("missing rule should error")
	}
}

func TestCachedStoreFallsBackWhenRedisIsDown(t *testing.T) {
	conn := testDB(t)
	seedRules(t, conn)

	// A client pointing at a closed port: every cache operation fails and
	// the store must keep serving from the database.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	store := NewCachedStore(NewGormStore(conn), rdb, time.Second)

	rules, err := store.ActiveForModel(context.Background(), "job",
		[]models.TriggerType{models.TriggerModelCreated})
	if err != nil {
		t.Fatalf("query with redis down: %v", err)
	}
	if len(rules) != 1 || rules[0].Name != "a" {
		t.Fatalf("rules = %+v, want rule a via fallback", rules)
	}
}

func TestCacheKeyIsOrderInsensitive(t *testing.T) {
	a := cacheKey("model", "job", []models.TriggerType{models.TriggerModelCreated, models.TriggerStageChanged})
	b := cacheKey("model", "job", []models.TriggerType{models.TriggerStageChanged, models.TriggerModelCreated})
	if a != b {
		t.Fatalf("key depends on type order: %s vs %s", a, b)
	}
}
