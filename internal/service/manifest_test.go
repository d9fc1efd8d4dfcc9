package service

import (
	"strings"
	"testing"
)

func TestReadSampleManifest(t *testing.T) {
	input := "code,name,collection_code\nS-1,alpha,C-1\nS-2,beta\nS-3\n"
	records, err := readSampleManifest(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("期望 3 条记录, 得到 %d", len(records))
	}
	if records[0].Code != "S-1" || records[0].Name != "alpha" || records[0].CollectionCode != "C-1" {
		t.Fatalf("三列行解析错误: %+v", records[0])
	}
	if records[1].Code != "S-2" || records[1].CollectionCode != "" {
		t.Fatalf("两列行解析错误: %+v", records[1])
	}
	if records[2].Code != "S-3" || records[2].Name != "" {
		t.Fatalf("单列行解析错误: %+v", records[2])
	}
}

func TestReadSampleManifestWithoutHeader(t *testing.T) {
	input := "S-1,alpha\nS-2,beta\n"
	records, err := readSampleManifest(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("无表头清单解析错误: %+v", records)
	}
}

func TestReadSampleManifestRejectsMissingCode(t *testing.T) {
	input := "code,name\n,缺少编码\n"
	if _, err := readSampleManifest(strings.NewReader(input)); err == nil {
		t.Fatal("缺少编码的行应报错")
	}
}

func TestReadSampleManifestTrimsWhitespace(t *testing.T) {
	input := "S-1, alpha , C-1\n"
	records, err := readSampleManifest(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if records[0].Name != "alpha" || records[0].CollectionCode != "C-1" {
		t.Fatalf("字段应去除首尾空白: %+v", records[0])
	}
}
