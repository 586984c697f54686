package rtmp

import (
	"errors"
	"testing"
)

func TestLedgerRegisterTake(t *testing.T) {
	ledger := NewTransactionLedger()
	ledger.Register(7, ConnectionRequested{AppName: "live"})

	tx, err := ledger.Take(7)
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	conn, ok := tx.(ConnectionRequested)
	if !ok {
		t.Fatalf("got %T, want ConnectionRequested", tx)
	}
	if conn.AppName != "live" {
		t.Errorf("app name = %q", conn.AppName)
	}

	_, err = ledger.Take(7)
	var uerr *UnknownTransactionError
	if !errors.As(err, &uerr) {
		t.Fatalf("second take: got %v, want UnknownTransactionError", err)
	}
	if uerr.TransactionID != 7 {
		t.Errorf("error names id %d", uerr.TransactionID)
	}
}

func TestLedgerTakeUnknown(t *testing.T) {
	ledger := NewTransactionLedger()
	_, err := ledger.Take(42)
	var uerr *UnknownTransactionError
	if !errors.As(err, &uerr) {
		t.Fatalf("got %v, want UnknownTransactionError", err)
	}
}

func TestLedgerRegisterOverwrites(t *testing.T) {
	ledger := NewTransactionLedger()
	ledger.Register(3, ConnectionRequested{AppName: "old"})
	ledger.Register(3, CreateStream{Purpose: PlayRequest{StreamKey: "key"}})

	if ledger.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", ledger.Pending())
	}
	tx, err := ledger.Take(3)
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	cs, ok := tx.(CreateStream)
	if !ok {
		t.Fatalf("got %T, want CreateStream", tx)
	}
	play, ok := cs.Purpose.(PlayRequest)
	if !ok {
		t.Fatalf("purpose is %T, want PlayRequest", cs.Purpose)
	}
	if play.StreamKey != "key" {
		t.Errorf("stream key = %q", play.StreamKey)
	}
}

func TestLedgerIndependentIDs(t *testing.T) {
	ledger := NewTransactionLedger()
	ledger.Register(1, ConnectionRequested{AppName: "app"})
	ledger.Register(2, CreateStream{Purpose: PublishRequest{StreamKey: "k", Type: PublishTypeLive}})

	if ledger.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", ledger.Pending())
	}

	tx, err := ledger.Take(2)
	if err != nil {
		t.Fatalf("take 2: %v", err)
	}
	cs := tx.(CreateStream)
	pub, ok := cs.Purpose.(PublishRequest)
	if !ok {
		t.Fatalf("purpose is %T, want PublishRequest", cs.Purpose)
	}
	if pub.StreamKey != "k" || pub.Type != PublishTypeLive {
		t.Errorf("got %+v", pub)
	}

	if _, err := ledger.Take(1); err != nil {
		t.Fatalf("take 1: %v", err)
	}
	if ledger.Pending() != 0 {
		t.Errorf("pending = %d, want 0", ledger.Pending())
	}
}
