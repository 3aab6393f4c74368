package doc

import (
	"encoding/xml"
	"testing"

	"github.com/spf13/afero"
)

func TestXMLRoundTripPreservesOtherFields(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/platforms/Flash.xml"

	known := map[string]*string{"Title": new(string), "Platform": new(string)}
	*known["Title"] = "Cool Game"
	*known["Platform"] = "Flash"
	other := map[string]string{"Weird": "unmodeled-value"}

	err := WriteXMLDocument(fs, path, "Flash", "LaunchBox", func(enc *xml.Encoder) error {
		return EncodeItem(enc, "Game", []EncodeItemField{
			{Tag: "Title", Value: *known["Title"]},
			{Tag: "Platform", Value: *known["Platform"]},
		}, other)
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	var gotTitle, gotPlatform string
	var gotOther map[string]string
	readKnown := map[string]*string{"Title": &gotTitle, "Platform": &gotPlatform}

	err = ReadXMLDocument(fs, path, "Flash", "LaunchBox", map[string]func(dec *xml.Decoder, start xml.StartElement) error{
		"Game": func(dec *xml.Decoder, start xml.StartElement) error {
			o, err := DecodeItemFields(dec, start, readKnown)
			gotOther = o
			return err
		},
	})
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if gotTitle != "Cool Game" || gotPlatform != "Flash" {
		t.Errorf("known fields not round-tripped: %q %q", gotTitle, gotPlatform)
	}
	if gotOther["Weird"] != "unmodeled-value" {
		t.Errorf("expected other_fields to preserve Weird, got %v", gotOther)
	}
}

func TestReadXMLDocumentWrongRootIsInvalidType(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/playlists/P.xml"
	afero.WriteFile(fs, path, []byte(`<?xml version="1.0"?><NotLaunchBox></NotLaunchBox>`), 0644)

	err := ReadXMLDocument(fs, path, "P", "LaunchBox", nil)
	if err == nil {
		t.Fatal("expected DocInvalidType error")
	}
}

func TestRomlistEscapeRoundTrip(t *testing.T) {
	title := "A;B\\C"
	line := FormatRomlistLine([]string{"rom", title})
	fields := ParseRomlistLine(line)
	if fields[1] != title {
		t.Errorf("expected round trip of %q, got %q (line=%q)", title, fields[1], line)
	}
}

func TestParseKeyValueLine(t *testing.T) {
	k, v, ok := ParseKeyValueLine("exe  /opt/launcher/run.sh")
	if !ok || k != "exe" || v != "/opt/launcher/run.sh" {
		t.Errorf("unexpected parse: %q %q %v", k, v, ok)
	}
	k, v, ok = ParseKeyValueLine("fullscreen")
	if !ok || k != "fullscreen" || v != "" {
		t.Errorf("unexpected parse of bare key: %q %q %v", k, v, ok)
	}
}
