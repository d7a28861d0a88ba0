package fund_test

import (
	"errors"
	"testing"
	"time"

	"github.com/fundexplorer/datakit/fund"
	"github.com/shopspring/decimal"
)

func TestParseDetail(t *testing.T) {
	body := []byte(`{"code":"005827","name":"易方达蓝筹精选","nav":"1.8842","daily_growth":"-0.0123","nav_date":"2026-02-10T00:00:00Z"}`)
	r, err := fund.ParseDetail(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if r.Code != "005827" {
		t.Errorf("code = %q", r.Code)
	}
	if !r.Nav.Equal(decimal.RequireFromString("1.8842")) {
		t.Errorf("nav = %s, want 1.8842", r.Nav)
	}
	if !r.DailyGrowth.IsNegative() {
		t.Errorf("daily growth = %s, want negative", r.DailyGrowth)
	}
}

func TestParseDetailMissingCode(t *testing.T) {
	_, err := fund.ParseDetail([]byte(`{"name":"no code"}`))
	if !errors.Is(err, fund.ErrMissingCode) {
		t.Fatalf("expected ErrMissingCode, got %v", err)
	}
}

func TestParseListDropsCodeless(t *testing.T) {
	body := []byte(`[{"code":"005827","nav":"1.88"},{"name":"broken"},{"code":"110011","nav":"4.10"}]`)
	list, err := fund.ParseList(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d records, want 2", len(list))
	}
	if list[1].Code != "110011" {
		t.Errorf("second code = %q", list[1].Code)
	}
}

func TestParseListMalformed(t *testing.T) {
	if _, err := fund.ParseList([]byte(`{"not":"a list"}`)); err == nil {
		t.Fatal("expected an error for a non-array body")
	}
}

func TestChecksumTracksValueFields(t *testing.T) {
	navDate := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	a := &fund.Record{Code: "005827", Nav: decimal.RequireFromString("1.88"), NavDate: navDate}
	b := &fund.Record{Code: "005827", Nav: decimal.RequireFromString("1.88"), NavDate: navDate}
	if a.Checksum() != b.Checksum() {
		t.Error("identical records should share a checksum")
	}

	b.Nav = decimal.RequireFromString("1.89")
	if a.Checksum() == b.Checksum() {
		t.Error("nav change should change the checksum")
	}
}

func TestFieldTimes(t *testing.T) {
	navDate := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	updated := navDate.Add(6 * time.Hour)
	r := &fund.Record{Code: "005827", NavDate: navDate, UpdatedAt: updated}

	ft := r.FieldTimes()
	if !ft["nav"].Equal(navDate) {
		t.Errorf("nav time = %v, want nav date", ft["nav"])
	}
	if !ft["name"].Equal(updated) {
		t.Errorf("name time = %v, want updated-at", ft["name"])
	}
}

func TestCodecRoundTrip(t *testing.T) {
	codec := fund.Codec()
	r := &fund.Record{
		Code: "005827",
		Name: "易方达蓝筹精选",
		Nav:  decimal.RequireFromString("1.8842"),
	}

	raw, err := codec.Encode(r)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	got, err := codec.Decode(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Code != r.Code || !got.Nav.Equal(r.Nav) {
		t.Errorf("round trip mismatch: %+v", got)
	}
}
