package models

// DefaultBaseURL 爬取服务默认地址
const DefaultBaseURL = "http://localhost:1234/crawl"

// BuildEndpoint 拼接爬取服务请求地址
// 参数按原样拼接,不做转义也不做校验:
// 用户输入中的 '&'、'#'、空格会原样进入查询串
// depth 为空时省略 deep 参数
func BuildEndpoint(base, targetURL, depth string) string {
	endpoint := base + "?url=" + targetURL
	if depth != "" {
		endpoint += "&deep=" + depth
	}
	return endpoint
}
