package shixiseng

import "github.com/Mouseminar/job-mcp/internal/source"

// cityCodes is the listing's c filter. Unknown cities search nationwide.
var cityCodes = source.CodeTable{Entries: []source.Code{
	{Name: "北京", Value: "110100"},
	{Name: "上海", Value: "310100"},
	{Name: "广州", Value: "440100"},
	{Name: "深圳", Value: "440300"},
	{Name: "杭州", Value: "330100"},
	{Name: "成都", Value: "510100"},
	{Name: "南京", Value: "320100"},
	{Name: "武汉", Value: "420100"},
	{Name: "西安", Value: "610100"},
	{Name: "苏州", Value: "320500"},
	{Name: "天津", Value: "120100"},
	{Name: "重庆", Value: "500100"},
	{Name: "郑州", Value: "410100"},
	{Name: "长沙", Value: "430100"},
	{Name: "东莞", Value: "441900"},
	{Name: "青岛", Value: "370200"},
	{Name: "太原", Value: "140100"},
	{Name: "济南", Value: "370100"},
	{Name: "厦门", Value: "350200"},
	{Name: "福州", Value: "350100"},
	{Name: "合肥", Value: "340100"},
	{Name: "昆明", Value: "530100"},
	{Name: "大连", Value: "210200"},
	{Name: "沈阳", Value: "210100"},
	{Name: "哈尔滨", Value: "230100"},
	{Name: "长春", Value: "220100"},
	{Name: "南昌", Value: "360100"},
	{Name: "无锡", Value: "320200"},
	{Name: "宁波", Value: "330200"},
	{Name: "佛山", Value: "440600"},
	{Name: "珠海", Value: "440400"},
	{Name: "石家庄", Value: "130100"},
}}
