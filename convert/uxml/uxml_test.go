package uxml_test

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"ussconv/convert/uss"
	"ussconv/convert/uxml"
)

const page = `<!DOCTYPE html>
<html>
<head>
  <title>Menu</title>
  <link rel="stylesheet" href="menu.css">
  <style>.title { font-size: 2em; }</style>
  <script>alert(1)</script>
</head>
<body>
  <div id="menu" class="panel  main">
    <h1 class="title">Main   menu</h1>
    <button style="font-size: 1em; float: left">Play</button>
    <input type="checkbox" checked>
    <input type="text" value="Player" placeholder="Name">
    <img src="logo.png">
    <custom-element>loose text</custom-element>
  </div>
</body>
</html>`

func convert(t *testing.T, opts uxml.Options) (*uxml.Document, string) {
	t.Helper()
	policy, err := uss.DefaultPolicy()
	if err != nil {
		t.Fatal(err)
	}
	engine := uss.NewEngine(zap.NewNop(), policy, nil)
	doc, err := uxml.NewConverter(zap.NewNop(), engine, opts).Convert(strings.NewReader(page), "")
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	return doc, string(out)
}

func TestConvert_Structure(t *testing.T) {
	doc, out := convert(t, uxml.Options{})

	for _, want := range []string{
		`<?xml version="1.0" encoding="utf-8"?>`,
		`<ui:UXML xmlns:ui="UnityEngine.UIElements"`,
		`<ui:VisualElement name="menu" class="panel main">`,
		`<ui:Label class="title" text="Main menu"/>`,
		`<ui:Button style="font-size: 16px" text="Play"/>`,
		`<ui:Toggle value="true"/>`,
		`<ui:TextField value="Player" label="Name"/>`,
		`<ui:Image style="background-image: url(logo.png)"/>`,
		`<ui:Label text="loose text"/>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q\n%s", want, out)
		}
	}
	for _, unwanted := range []string{"alert", "Menu<", "script", "title>"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("output must not contain %q\n%s", unwanted, out)
		}
	}

	if len(doc.Styles) != 1 || string(doc.Styles[0]) != ".title { font-size: 2em; }" {
		t.Errorf("Styles = %q", doc.Styles)
	}
	if len(doc.Links) != 1 || doc.Links[0] != "menu.css" {
		t.Errorf("Links = %v", doc.Links)
	}
}

func TestConvert_UppercaseLabels(t *testing.T) {
	_, out := convert(t, uxml.Options{UppercaseLabels: true})

	if !strings.Contains(out, `text="MAIN MENU"`) {
		t.Errorf("labels not upper-cased\n%s", out)
	}
	if !strings.Contains(out, `text="Play"`) {
		t.Errorf("buttons must keep case\n%s", out)
	}
}

func TestDocument_AddStyle(t *testing.T) {
	doc, _ := convert(t, uxml.Options{})
	doc.AddStyle("menu.uss")
	doc.AddStyle("page.uss")

	out, err := doc.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	first := strings.Index(s, `<Style src="menu.uss"/>`)
	second := strings.Index(s, `<Style src="page.uss"/>`)
	content := strings.Index(s, `<ui:VisualElement`)
	if first < 0 || second < 0 || first > second || second > content {
		t.Errorf("styles must precede content in insertion order\n%s", s)
	}
}
