package ocr

import "strconv"

// NIKLength is the number of digits in an Indonesian identity number.
const NIKLength = 16

// isPlausibleNIK checks the structure of a 16-digit identity number:
// province (11-94), regency, district, birth date DDMMYY where women carry
// day+40, and a non-zero serial.
func isPlausibleNIK(s string) bool {
	if len(s) != NIKLength || onlyDigits(s) != s {
		return false
	}
	province := atoi(s[0:2])
	if province < 11 || province > 94 {
		return false
	}
	if s[2:4] == "00" || s[4:6] == "00" {
		return false
	}
	day := atoi(s[6:8])
	if day > 40 {
		day -= 40
	}
	if day < 1 || day > 31 {
		return false
	}
	month := atoi(s[8:10])
	if month < 1 || month > 12 {
		return false
	}
	return s[12:16] != "0000"
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
