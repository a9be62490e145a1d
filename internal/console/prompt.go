// Package console 负责交互式命令行的输入输出
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// 交互提示文本
const (
	PromptURL   = "Enter the URL of the website to crawl: "
	PromptDepth = "Enter the depth of URLs (optional): "
	PromptRetry = "Do you want to retry? (y/n): "
)

// Prompter 逐行读取用户输入
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter 创建提示器
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Ask 输出提示(不换行)并读取一行
// 只去掉行尾的换行符, 其余空白原样保留
// 输入耗尽且没有待读内容时返回 io.EOF
func (p *Prompter) Ask(prompt string) (string, error) {
	if _, err := io.WriteString(p.out, prompt); err != nil {
		return "", fmt.Errorf("写入提示失败: %w", err)
	}

	line, err := p.in.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("读取输入失败: %w", err)
		}
		if line == "" {
			return "", io.EOF
		}
	}

	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// Println 输出一行
func (p *Prompter) Println(a ...interface{}) {
	fmt.Fprintln(p.out, a...)
}

// Printf 格式化输出
func (p *Prompter) Printf(format string, a ...interface{}) {
	fmt.Fprintf(p.out, format, a...)
}

// IsYes 判断是否继续: 仅 "y" 或 "Y"
func IsYes(answer string) bool {
	return strings.ToLower(answer) == "y"
}
