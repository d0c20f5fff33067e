package model

// CountryCount 按国家分组的事件数
type CountryCount struct {
	Country string `json:"country"`
	Count   int64  `json:"count"`
}

// CityCount 按城市分组的事件数
type CityCount struct {
	City  string `json:"city"`
	Count int64  `json:"count"`
}

// PlatformCount 按平台分组的点击数
type PlatformCount struct {
	Platform string `json:"platform"`
	Count    int64  `json:"count"`
}

// LinkClicks 单个外链的点击数
type LinkClicks struct {
	ID       uint   `json:"id"`
	Platform string `json:"platform"`
	Clicks   int64  `json:"clicks"`
}

// Summary 由事件日志实时计算出的汇总视图，不落库
type Summary struct {
	TotalViews   int64           `json:"total_views"`
	TotalClicks  int64           `json:"total_clicks"`
	TotalShares  int64           `json:"total_shares"`
	TotalQRScans int64           `json:"total_qr_scans"`
	ByCountry    []CountryCount  `json:"by_country"`
	ByCity       []CityCount     `json:"by_city"`
	ByPlatform   []PlatformCount `json:"by_platform"`
	ByLink       []LinkClicks    `json:"by_link"`
}
