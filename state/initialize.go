package state

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"ussconv/convert/uss"
	"ussconv/convert/uxml"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{start: time.Now()}
}

// PrepareConversion builds translation policy and asset table from active
// configuration. Must be called after Cfg and Log are set.
func (e *LocalEnv) PrepareConversion() error {
	properties, fallbacks, err := e.Cfg.Document.ReadTables()
	if err != nil {
		return err
	}
	if e.Policy, err = uss.LoadPolicy(properties, fallbacks, e.Cfg.Document.BreakingSelectors); err != nil {
		return fmt.Errorf("unable to prepare translation policy: %w", err)
	}

	e.Assets = uss.NewAssets(e.Log)
	if root := e.Cfg.Assets.ResourcesRoot; root != "" {
		if err := e.Assets.Scan(root, e.Cfg.Assets.Patterns); err != nil {
			return fmt.Errorf("unable to scan resources: %w", err)
		}
	}
	// explicit names win over discovered files
	for name, path := range e.Cfg.Assets.Fonts {
		e.Assets.AddFont(name, path)
	}
	for name, path := range e.Cfg.Assets.Images {
		e.Assets.AddImage(name, path)
	}

	fonts, images := e.Assets.Len()
	e.Log.Debug("Conversion prepared",
		zap.Int("properties", len(e.Policy.Properties())),
		zap.Strings("breaking", e.Policy.BreakingSelectors()),
		zap.Int("fonts", fonts), zap.Int("images", images))
	return nil
}

// Engine returns stylesheet engine configured for this run.
func (e *LocalEnv) Engine() *uss.Engine {
	return uss.NewEngine(e.Log, e.Policy, e.Assets,
		uss.WithRootSelector(e.Cfg.Document.RootSelector),
		uss.WithStylesheetExt(e.Cfg.Document.StylesheetExt))
}

// MarkupConverter returns HTML converter configured for this run.
func (e *LocalEnv) MarkupConverter(engine *uss.Engine) *uxml.Converter {
	return uxml.NewConverter(e.Log, engine, uxml.Options{
		UppercaseLabels: e.Cfg.Document.UppercaseLabels,
		InlineRule:      e.Cfg.Document.InlineRule,
	})
}
