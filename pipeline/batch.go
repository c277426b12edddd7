package pipeline

// BatchItem is the outcome of one conversion in a batch. Exactly one of
// Result and Err is set.
type BatchItem struct {
	Config Config
	Result *Result
	Err    error
}

// RunBatch converts every config in order. A failed conversion is recorded
// and the batch moves on to the next one.
func (p *Pipeline) RunBatch(cfgs []Config) []BatchItem {
	items := make([]BatchItem, len(cfgs))
	failed := 0
	for i, cfg := range cfgs {
		res, err := p.Run(cfg)
		items[i] = BatchItem{Config: cfg, Result: res, Err: err}
		if err != nil {
			failed++
			p.logger().Printf("batch %d/%d: %s failed: %v", i+1, len(cfgs), cfg.InputPath, err)
			continue
		}
		p.logger().Printf("batch %d/%d: %s -> %s", i+1, len(cfgs), cfg.InputPath, res.OutputPath)
	}
	p.logger().Printf("batch finished: %d converted, %d failed", len(cfgs)-failed, failed)
	return items
}

// Failed returns the items that did not convert.
func Failed(items []BatchItem) []BatchItem {
	var out []BatchItem
	for _, it := range items {
		if it.Err != nil {
			out = append(out, it)
		}
	}
	return out
}
