// Package files manages the working directory of one adjustment run.
//
// A Workspace either wraps a caller-supplied output directory, which is
// created if needed and left in place, or a fresh temporary directory that
// is removed recursively on Release. Release is safe to call on every exit
// path, including after a failed run.
//
// Example usage:
//
//	ws, err := files.Acquire(opts.OutputDir, cfg.X13.WorkRoot)
//	if err != nil {
//	    return err
//	}
//	defer ws.Release()
//
//	path, err := ws.WriteFile("seasonal_sales.spc", doc)
package files
