package reqflow

// normalizeConfig returns a defaulted shallow copy of cfg: AutoExecute
// defaults to true and WaitUntilMount to false when unset. Other request
// fields pass through untouched; malformed parameters surface later as
// request errors.
func normalizeConfig(cfg *RequestConfig) RequestConfig {
	if cfg == nil {
		return RequestConfig{
			AutoExecute:    boolPtr(true),
			WaitUntilMount: boolPtr(false),
		}
	}
	out := *cfg
	if out.AutoExecute == nil {
		out.AutoExecute = boolPtr(true)
	}
	if out.WaitUntilMount == nil {
		out.WaitUntilMount = boolPtr(false)
	}
	return out
}

// stripConfig removes the controller-only fields from a config so the
// remainder can serve as a cache identity. Stripped configs are what get
// stored in cache entries and compared for hit detection.
func stripConfig(cfg RequestConfig) RequestConfig {
	cfg.AutoExecute = nil
	cfg.WaitUntilMount = nil
	cfg.Context = nil
	return cfg
}

func boolPtr(b bool) *bool { return &b }
