package core

import (
	"net/http"

	"github.com/RecoveryAshes/crawlclient/internal/models"
	"github.com/RecoveryAshes/crawlclient/internal/utils"
)

// HeaderManager 管理附加请求头
// 没有内置默认头部: 未配置时请求不附加任何头部
// 合并优先级: 配置文件 < 命令行
type HeaderManager struct {
	config    http.Header
	cli       http.Header
	validator *utils.HeaderValidator
	redactor  *utils.HeaderRedactor
}

// NewHeaderManager 创建头部管理器
//   - configHeaders: 配置文件 headers 段
//   - cliHeaders: 命令行 -H 参数
func NewHeaderManager(configHeaders map[string]string, cliHeaders []string) (*HeaderManager, error) {
	hm := &HeaderManager{
		config:    make(http.Header),
		cli:       make(http.Header),
		validator: utils.NewHeaderValidator(),
		redactor:  utils.NewHeaderRedactor(),
	}

	for name, value := range configHeaders {
		hm.config.Set(name, value)
	}

	if len(cliHeaders) > 0 {
		parsed, err := models.CliHeaders(cliHeaders).Parse()
		if err != nil {
			return nil, err
		}
		hm.cli = parsed
	}

	return hm, nil
}

// Validate 依次验证配置文件头部和命令行头部
func (hm *HeaderManager) Validate() error {
	if err := hm.validator.Validate(hm.config); err != nil {
		utils.Errorf("配置文件头部验证失败: %v", err)
		return err
	}
	if err := hm.validator.Validate(hm.cli); err != nil {
		utils.Errorf("命令行头部验证失败: %v", err)
		return err
	}
	return nil
}

// GetMergedHeaders 按优先级合并
func (hm *HeaderManager) GetMergedHeaders() http.Header {
	result := make(http.Header, len(hm.config)+len(hm.cli))
	for name, values := range hm.config {
		result[name] = values
	}
	for name, values := range hm.cli {
		result[name] = values
	}
	return result
}

// GetSafeHeaders 返回脱敏后的头部 (用于日志)
func (hm *HeaderManager) GetSafeHeaders() map[string]string {
	return hm.redactor.Redact(hm.GetMergedHeaders())
}

// GetHeaders 实现 models.HeaderProvider
func (hm *HeaderManager) GetHeaders() (http.Header, error) {
	if err := hm.Validate(); err != nil {
		return nil, err
	}
	merged := hm.GetMergedHeaders()
	if len(merged) > 0 {
		utils.Debugf("附加请求头: %s", hm.redactor.RedactToString(merged))
	}
	return merged, nil
}
