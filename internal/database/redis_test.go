package database

import "testing"

func TestRedisRoleOptions(t *testing.T) {
	publishOpt, pubsubOpt, err := redisRoleOptions("redis://:secret@localhost:6380/2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if publishOpt.ClientName != publishClientName || pubsubOpt.ClientName != pubsubClientName {
		t.Errorf("Expected role client names, got %q and %q", publishOpt.ClientName, pubsubOpt.ClientName)
	}
	if pubsubOpt.PoolSize != pubsubPoolSize {
		t.Errorf("Expected pubsub pool size %d, got %d", pubsubPoolSize, pubsubOpt.PoolSize)
	}
	if publishOpt.PoolSize == pubsubPoolSize {
		t.Errorf("Expected publish pool to keep the default size")
	}
	for _, opt := range []struct {
		addr, pass string
		db         int
	}{{publishOpt.Addr, publishOpt.Password, publishOpt.DB}, {pubsubOpt.Addr, pubsubOpt.Password, pubsubOpt.DB}} {
		if opt.addr != "localhost:6380" || opt.pass != "secret" || opt.db != 2 {
			t.Errorf("Expected URL settings on both roles, got %+v", opt)
		}
	}
}

func TestRedisRoleOptions_InvalidURL(t *testing.T) {
	if _, _, err := redisRoleOptions("not-a-url"); err == nil {
		t.Fatal("Expected error for invalid Redis URL")
	}
}
