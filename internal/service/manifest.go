// Package service 包含了应用的业务逻辑层。
package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"seqbank-go/internal/repository"
)

// parseSampleManifest 解析一个样本清单文件。
// 清单为 CSV，每行 "code,name[,collection_code]"；允许首行表头
// （以 "code" 开头时跳过）。空行被忽略，缺少编码的行报错。
func parseSampleManifest(path string) ([]repository.SampleRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readSampleManifest(f)
}

func readSampleManifest(r io.Reader) ([]repository.SampleRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // 第三列可选
	reader.TrimLeadingSpace = true

	var records []repository.SampleRecord
	line := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("清单第 %d 行解析失败: %w", line+1, err)
		}
		line++

		// 跳过表头
		if line == 1 && len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "code") {
			continue
		}
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		rec := repository.SampleRecord{Code: strings.TrimSpace(row[0])}
		if rec.Code == "" {
			return nil, fmt.Errorf("清单第 %d 行缺少样本编码", line)
		}
		if len(row) > 1 {
			rec.Name = strings.TrimSpace(row[1])
		}
		if len(row) > 2 {
			rec.CollectionCode = strings.TrimSpace(row[2])
		}
		records = append(records, rec)
	}
	return records, nil
}
