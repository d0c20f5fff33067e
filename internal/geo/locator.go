package geo

import (
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/oschwald/geoip2-golang"

	"muslink-platform/internal/model"
)

// ErrLocationNotFound 地理库中没有该地址的记录
var ErrLocationNotFound = errors.New("geo: location not found")

// Location 国家 + 城市
type Location struct {
	Country string `json:"country"`
	City    string `json:"city"`
}

// Unknown 无法解析时使用的哨兵对
var Unknown = Location{Country: model.UnknownLocation, City: model.UnknownLocation}

// IsUnknown 国家未解析出来即视为未知
func (l Location) IsUnknown() bool {
	return l.Country == model.UnknownLocation
}

// Locator 本地（离线）地理库查询
type Locator interface {
	Locate(addr netip.Addr) (Location, error)
}

// MaxMindLocator 基于 MaxMind GeoLite2 / GeoIP2 City mmdb 文件的查询实现
type MaxMindLocator struct {
	reader *geoip2.Reader
	lang   string
}

// OpenMaxMind 打开 mmdb 文件；lang 为名称语言，找不到时回退英文
func OpenMaxMind(path, lang string) (*MaxMindLocator, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开地理库失败: %w", err)
	}
	if lang == "" {
		lang = "en"
	}
	return &MaxMindLocator{reader: reader, lang: lang}, nil
}

// Locate 查询国家和城市；国家缺失视为未命中，城市缺失时用哨兵值补齐
func (m *MaxMindLocator) Locate(addr netip.Addr) (Location, error) {
	record, err := m.reader.City(net.IP(addr.AsSlice()))
	if err != nil {
		return Location{}, fmt.Errorf("地理库查询失败: %w", err)
	}

	country := m.name(record.Country.Names)
	if country == "" {
		country = m.name(record.RegisteredCountry.Names)
	}
	if country == "" {
		return Location{}, ErrLocationNotFound
	}

	city := m.name(record.City.Names)
	if city == "" {
		city = model.UnknownLocation
	}
	return Location{Country: country, City: city}, nil
}

func (m *MaxMindLocator) name(names map[string]string) string {
	if n := names[m.lang]; n != "" {
		return n
	}
	return names["en"]
}

// Close 关闭 mmdb 文件
func (m *MaxMindLocator) Close() error {
	return m.reader.Close()
}

// NopLocator 未配置地理库时使用，所有公网地址都落入未知
type NopLocator struct{}

// Locate 总是未命中
func (NopLocator) Locate(netip.Addr) (Location, error) {
	return Location{}, ErrLocationNotFound
}
