package zhilian

import "github.com/Mouseminar/job-mcp/internal/source"

// Cities outside this table are searched by keyword instead of by path.
var cityCodes = source.CodeTable{Entries: []source.Code{
	{Name: "北京", Value: "530"},
	{Name: "上海", Value: "538"},
	{Name: "广州", Value: "763"},
	{Name: "深圳", Value: "765"},
	{Name: "杭州", Value: "653"},
	{Name: "成都", Value: "801"},
	{Name: "南京", Value: "635"},
	{Name: "武汉", Value: "736"},
	{Name: "西安", Value: "854"},
	{Name: "苏州", Value: "639"},
	{Name: "天津", Value: "531"},
	{Name: "重庆", Value: "551"},
	{Name: "郑州", Value: "719"},
	{Name: "长沙", Value: "749"},
	{Name: "东莞", Value: "769"},
	{Name: "青岛", Value: "702"},
	{Name: "沈阳", Value: "599"},
	{Name: "宁波", Value: "654"},
	{Name: "昆明", Value: "813"},
	{Name: "合肥", Value: "664"},
	{Name: "福州", Value: "681"},
	{Name: "济南", Value: "703"},
	{Name: "厦门", Value: "682"},
	{Name: "珠海", Value: "771"},
	{Name: "无锡", Value: "636"},
	{Name: "佛山", Value: "773"},
	{Name: "大连", Value: "600"},
	{Name: "哈尔滨", Value: "622"},
}}
