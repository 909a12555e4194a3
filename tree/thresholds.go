package tree

import "github.com/kazumano/bwtree/page"

// shouldSplit reports whether view's page has outgrown its budget.
// Only base pages (chain_next == 0) are split candidates; a delta sits
// atop whatever the base eventually becomes.
func shouldSplit(info page.Info, opts Options) bool {
	if info.ChainNext != 0 {
		return false
	}
	budget := opts.PageSize
	if info.Tier.IsInner() {
		budget /= 2
	}
	return int(info.Size) > budget
}

// shouldConsolidate reports whether view's chain has grown past its
// length budget.
func shouldConsolidate(info page.Info, opts Options) bool {
	budget := opts.PageChainLength
	if info.Tier.IsInner() {
		budget /= 2
	}
	if budget < 1 {
		budget = 1
	}
	return int(info.ChainLen) > budget
}
