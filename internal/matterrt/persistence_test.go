package matterrt

import "testing"

func TestLoadSnapshot_MissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	snap, err := loadSnapshot(dir, "bridge-1")
	if err != nil {
		t.Fatalf("loadSnapshot: %v", err)
	}
	if snap.Commissioned {
		t.Fatal("expected fresh snapshot to be uncommissioned")
	}
	if snap.StartUpOnOffByEP == nil {
		t.Fatal("expected non-nil map on fresh snapshot")
	}
}

func TestSaveAndLoadSnapshot_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	snap := psmSnapshot{
		Commissioned:     true,
		StartUpOnOffByEP: map[uint16]StartUpOnOffEnum{2: StartUpOnOffOn, 3: StartUpOnOffOff},
	}

	if err := saveSnapshot(dir, "bridge-1", snap); err != nil {
		t.Fatalf("saveSnapshot: %v", err)
	}

	got, err := loadSnapshot(dir, "bridge-1")
	if err != nil {
		t.Fatalf("loadSnapshot: %v", err)
	}
	if !got.Commissioned {
		t.Fatal("expected commissioned true after round trip")
	}
	if got.StartUpOnOffByEP[2] != StartUpOnOffOn || got.StartUpOnOffByEP[3] != StartUpOnOffOff {
		t.Fatalf("unexpected start-up onoff map: %+v", got.StartUpOnOffByEP)
	}
}

func TestEraseSnapshot_RemovesFileAndMissingIsNotError(t *testing.T) {
	dir := t.TempDir()
	if err := saveSnapshot(dir, "bridge-1", psmSnapshot{StartUpOnOffByEP: map[uint16]StartUpOnOffEnum{}}); err != nil {
		t.Fatalf("saveSnapshot: %v", err)
	}
	if err := eraseSnapshot(dir, "bridge-1"); err != nil {
		t.Fatalf("eraseSnapshot: %v", err)
	}
	snap, err := loadSnapshot(dir, "bridge-1")
	if err != nil {
		t.Fatalf("loadSnapshot after erase: %v", err)
	}
	if snap.Commissioned {
		t.Fatal("expected snapshot to be fresh after erase")
	}

	// Erasing again must not error.
	if err := eraseSnapshot(dir, "bridge-1"); err != nil {
		t.Fatalf("eraseSnapshot (again): %v", err)
	}
}
