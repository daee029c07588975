package rtu

import "testing"

func TestAdvertRoundTrip(t *testing.T) {
	a := Advert{Boiler, BoilerValve, Turbine}
	got, ok := DecodeAdvert(a.Encode())
	if !ok || len(got) != 3 || got[1] != BoilerValve {
		t.Fatalf("got %+v ok=%v", got, ok)
	}
}

func TestDecodeAdvertRejectsUnknownCapability(t *testing.T) {
	_, ok := DecodeAdvert([]any{uint8(0), uint8(250)})
	if ok {
		t.Fatal("expected invalid for unknown capability tag")
	}
}

func TestDecodeAdvertEmpty(t *testing.T) {
	got, ok := DecodeAdvert(nil)
	if !ok || len(got) != 0 {
		t.Fatalf("expected valid empty advert, got %+v ok=%v", got, ok)
	}
}
