package core

type (
	// Statistics summarises one month of sales.
	Statistics struct {
		TotalSaleAmount   float64 `json:"totalSaleAmount"`
		TotalSoldItems    int64   `json:"totalSoldItems"`
		TotalNotSoldItems int64   `json:"totalNotSoldItems"`
	}

	HistogramEntry struct {
		Range string `json:"range"`
		Count int64  `json:"count"`
	}

	CategoryCount struct {
		Category string `json:"category"`
		Count    int64  `json:"count"`
	}

	// Combined bundles the three monthly aggregates.
	Combined struct {
		Statistics   Statistics       `json:"statistics"`
		BarChartData []HistogramEntry `json:"barChartData"`
		PieChartData []CategoryCount  `json:"pieChartData"`
	}

	// ListResult is a page of the free-text listing.
	ListResult struct {
		Transactions []Transaction `json:"transactions"`
		TotalPages   int64         `json:"totalPages"`
		CurrentPage  int64         `json:"currentPage"`
		TotalCount   int64         `json:"totalCount"`
	}

	// MonthPage is a page of a month-scoped listing.
	MonthPage struct {
		Transactions []TransactionView `json:"transactions"`
		TotalPages   int64             `json:"totalPages"`
	}
)

// TotalPages returns ceil(count/size). A non-positive size yields zero pages.
func TotalPages(count, size int64) int64 {
	if size <= 0 || count <= 0 {
		return 0
	}
	return (count + size - 1) / size
}
